package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lathe/internal/config"
)

var (
	// ErrNotFound reports a lookup for an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateID reports an attempt to create a job under an existing id.
	ErrDuplicateID = errors.New("job id already exists")
	// ErrInvalidTransition reports a mutation that violates the job state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the job registry, backed by SQLite. All mutations funnel through
// Update, which enforces the lifecycle invariants: terminal states are
// absorbing, progress is monotone while processing, and full progress is
// reserved for completion.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL DEFAULT 'object',
    status TEXT NOT NULL,
    progress REAL NOT NULL DEFAULT 0,
    stage TEXT NOT NULL DEFAULT '',
    input_dir TEXT NOT NULL DEFAULT '',
    artifact_path TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
}

// OpenPath connects to the job database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new job. The id must not already exist.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return errors.New("job with id required")
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusPending
	}

	err := s.withBusyRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO jobs (
                id, mode, status, progress, stage, input_dir,
                artifact_path, error_message, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			string(job.Mode),
			string(job.Status),
			job.Progress,
			job.Stage,
			job.InputDir,
			job.ArtifactPath,
			job.ErrorMessage,
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job snapshot. Unknown ids return ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update applies mutate to the current job row inside a transaction.
// Terminal jobs absorb updates silently: the row is left untouched and no
// error is returned, so a late worker write cannot resurrect a finished job.
// Status changes must follow the job state machine, and progress never
// regresses while processing.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Job) error) error {
	if mutate == nil {
		return errors.New("mutate func required")
	}
	return s.withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin update: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		row := tx.QueryRowContext(ctx, selectColumns+` FROM jobs WHERE id = ?`, id)
		current, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load job for update: %w", err)
		}

		if current.IsTerminal() {
			return nil
		}

		next := *current
		if err := mutate(&next); err != nil {
			return err
		}
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt

		if !ValidTransition(current.Status, next.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next.Status)
		}
		if next.Status == StatusProcessing && next.Progress < current.Progress {
			next.Progress = current.Progress
		}
		if next.Status == StatusCompleted {
			next.Progress = 1.0
		}
		if next.Progress < 0 {
			next.Progress = 0
		}
		if next.Progress > 1 {
			next.Progress = 1
		}
		next.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(
			ctx,
			`UPDATE jobs SET
                mode = ?, status = ?, progress = ?, stage = ?, input_dir = ?,
                artifact_path = ?, error_message = ?, updated_at = ?
            WHERE id = ?`,
			string(next.Mode),
			string(next.Status),
			next.Progress,
			next.Stage,
			next.InputDir,
			next.ArtifactPath,
			next.ErrorMessage,
			next.UpdatedAt.Format(time.RFC3339Nano),
			next.ID,
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		return tx.Commit()
	})
}

// List returns jobs ordered oldest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := selectColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// Health reports aggregated job counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("job counts: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan count: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

// FailInFlight marks every pending or processing job failed with the given
// diagnostic. Used at startup after an unclean stop and at daemon shutdown,
// so no job is ever left stuck in a non-terminal state without a worker.
func (s *Store) FailInFlight(ctx context.Context, stage string) (int64, error) {
	var affected int64
	err := s.withBusyRetry(ctx, func() error {
		res, execErr := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, stage = ?, error_message = ?, progress = 0, artifact_path = '', updated_at = ?
             WHERE status IN (?, ?)`,
			string(StatusFailed),
			stage,
			stage,
			time.Now().UTC().Format(time.RFC3339Nano),
			string(StatusPending),
			string(StatusProcessing),
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("fail in-flight jobs: %w", err)
	}
	return affected, nil
}

const selectColumns = `SELECT id, mode, status, progress, stage, input_dir, artifact_path, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var mode, status, createdAt, updatedAt string
	if err := row.Scan(
		&job.ID,
		&mode,
		&status,
		&job.Progress,
		&job.Stage,
		&job.InputDir,
		&job.ArtifactPath,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	job.Mode = Mode(mode)
	job.Status = Status(status)
	job.CreatedAt = parseTimestamp(createdAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	return &job, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) withBusyRetry(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
