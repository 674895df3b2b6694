package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services"
	"lathe/internal/storage"
)

// Scheduler hands a registered job to the execution workers.
type Scheduler interface {
	Dispatch(ctx context.Context, job *jobs.Job) error
}

// Upload is one image file from a submission request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// JobService implements the job operations behind the HTTP surface: submit,
// status, artifact retrieval, and listing.
type JobService struct {
	store     *jobs.Store
	layout    *storage.Layout
	scheduler Scheduler
	logger    *slog.Logger
}

// NewJobService constructs the service.
func NewJobService(store *jobs.Store, layout *storage.Layout, scheduler Scheduler, logger *slog.Logger) *JobService {
	return &JobService{
		store:     store,
		layout:    layout,
		scheduler: scheduler,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// Submit validates the batch, persists the uploads, registers a pending job,
// and schedules its worker. Validation happens before any state is created:
// a rejected submission leaves no job and no files behind.
func (s *JobService) Submit(ctx context.Context, mode string, uploads []Upload) (string, error) {
	if len(uploads) == 0 {
		return "", services.Wrap(services.ErrValidation, "submit", "no images provided", nil)
	}

	jobID := uuid.NewString()
	dir, err := s.layout.AllocateUploadArea(jobID)
	if err != nil {
		return "", err
	}

	for _, up := range uploads {
		if _, err := s.layout.SaveUpload(dir, up.Filename, up.Content); err != nil {
			s.discardUploadArea(dir)
			return "", err
		}
	}

	job := jobs.New(jobID, jobs.ParseMode(mode), dir)
	if err := s.store.Create(ctx, job); err != nil {
		s.discardUploadArea(dir)
		return "", err
	}

	if err := s.scheduler.Dispatch(ctx, job); err != nil {
		// The job exists but no worker will run it; record the failure so the
		// entry does not sit in pending forever.
		if ferr := s.store.Update(ctx, jobID, func(j *jobs.Job) error {
			j.SetFailed("Error: could not schedule job")
			return nil
		}); ferr != nil {
			s.logger.Error("failed to record dispatch failure", logging.Error(ferr))
		}
		return "", err
	}

	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.String("mode", string(job.Mode)),
		logging.Int("images", len(uploads)),
	)
	return jobID, nil
}

// Status returns the current snapshot for a job id.
func (s *JobService) Status(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return nil, services.Wrap(services.ErrNotFound, "status", "unknown job "+jobID, nil)
		}
		return nil, err
	}
	return job, nil
}

// Artifact returns the on-disk artifact path for a completed job. A job that
// has not completed yields ErrNotReady; an unknown id or a vanished artifact
// yields ErrNotFound.
func (s *JobService) Artifact(ctx context.Context, jobID string) (string, error) {
	job, err := s.Status(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != jobs.StatusCompleted {
		return "", services.Wrap(services.ErrNotReady, "artifact", "job "+jobID+" is "+string(job.Status), nil)
	}
	if _, err := os.Stat(job.ArtifactPath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "artifact", "artifact missing for job "+jobID, nil)
	}
	return job.ArtifactPath, nil
}

// List returns all known jobs, optionally filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error) {
	return s.store.List(ctx, statuses...)
}

// Health reports queue counts for the health endpoint.
func (s *JobService) Health(ctx context.Context) (jobs.HealthSummary, error) {
	return s.store.Health(ctx)
}

// discardUploadArea removes a partially populated upload directory after a
// failed submission.
func (s *JobService) discardUploadArea(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("failed to clean up upload area", logging.String("dir", dir), logging.Error(err))
	}
}
