package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"lathe/internal/api"
	"lathe/internal/config"
	"lathe/internal/deps"
	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services"
	"lathe/internal/storage"
)

// maxSubmitMemory bounds how much of a multipart submission stays in memory
// before spilling to temp files.
const maxSubmitMemory = 32 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/jobs", srv.handleJobs)
	mux.HandleFunc("/jobs/", srv.handleJobItem)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	queue, err := s.daemon.jobSvc.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:       "ok",
		Queue:        queue,
		Dependencies: deps.CheckBinaries(deps.Requirements(s.cfg)),
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmitMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	mode := r.FormValue("mode")
	headers := r.MultipartForm.File["images"]

	uploads := make([]api.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unreadable upload "+hdr.Filename)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, api.Upload{Filename: hdr.Filename, Content: f})
	}

	jobID, err := s.daemon.jobSvc.Submit(r.Context(), mode, uploads)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubmitResponse{JobID: jobID})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		if parsed, ok := jobs.ParseStatus(value); ok {
			statuses = append(statuses, parsed)
		}
	}

	list, err := s.daemon.jobSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]api.JobView, 0, len(list))
	for _, job := range list {
		views = append(views, api.NewJobView(job))
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Jobs: views})
}

func (s *apiServer) handleJobItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	jobID, action, ok := strings.Cut(rest, "/")
	if !ok || jobID == "" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "status":
		s.handleStatus(w, r, jobID)
	case "download":
		s.handleDownload(w, r, jobID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.daemon.jobSvc.Status(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewStatusResponse(job))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request, jobID string) {
	path, err := s.daemon.jobSvc.Artifact(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", storage.ArtifactContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+storage.ArtifactExt))
	http.ServeFile(w, r, path)
}

// writeServiceError maps service error markers onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotReady):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
