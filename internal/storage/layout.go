package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lathe/internal/config"
)

// ArtifactExt is the file extension of reconstruction artifacts.
const ArtifactExt = ".usdz"

// ArtifactContentType is the mimetype served for downloaded artifacts.
const ArtifactContentType = "model/vnd.usdz+zip"

// ErrStorage tags filesystem failures during allocation or persistence.
var ErrStorage = errors.New("storage error")

// Layout manages the three content directory roots: uploads, working state,
// and results. Roots are disjoint; per-job directories are created lazily.
type Layout struct {
	uploads string
	work    string
	results string
}

// NewLayout builds the layout from configuration.
func NewLayout(cfg *config.Config) *Layout {
	return &Layout{
		uploads: cfg.Paths.UploadDir,
		work:    cfg.Paths.WorkDir,
		results: cfg.Paths.ResultsDir,
	}
}

// AllocateUploadArea creates the upload directory for a new job. It fails if
// the directory already exists, which would indicate a reused job id.
func (l *Layout) AllocateUploadArea(jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("%w: job id required", ErrStorage)
	}
	if err := os.MkdirAll(l.uploads, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload root: %v", ErrStorage, err)
	}
	dir := filepath.Join(l.uploads, jobID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: upload area for job %s already exists", ErrStorage, jobID)
		}
		return "", fmt.Errorf("%w: create upload area: %v", ErrStorage, err)
	}
	return dir, nil
}

// SaveUpload writes one uploaded image verbatim into the job's upload area,
// preserving the client-supplied base filename. No content validation is
// performed; malformed images are the reconstruction tool's concern.
func (l *Layout) SaveUpload(dir, filename string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid upload filename %q", ErrStorage, filename)
	}
	target := filepath.Join(dir, base)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create upload file: %v", ErrStorage, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: write upload file: %v", ErrStorage, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: close upload file: %v", ErrStorage, err)
	}
	return target, nil
}

// WorkDir returns the job's scratch directory, creating it lazily.
func (l *Layout) WorkDir(jobID string) (string, error) {
	dir := filepath.Join(l.work, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create work dir: %v", ErrStorage, err)
	}
	return dir, nil
}

// ResultPath returns the deterministic artifact location for a job. The path
// is derived purely from the job id; the file may not exist yet.
func (l *Layout) ResultPath(jobID string) string {
	return filepath.Join(l.results, jobID+ArtifactExt)
}

// EnsureResultsRoot creates the results root so the reconstruction tool can
// write into it.
func (l *Layout) EnsureResultsRoot() error {
	if err := os.MkdirAll(l.results, 0o755); err != nil {
		return fmt.Errorf("%w: create results root: %v", ErrStorage, err)
	}
	return nil
}
