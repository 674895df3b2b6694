package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services/photogram"
	"lathe/internal/textutil"
)

const (
	// preparingBaseline is recorded while the upload batch is staged for the
	// tool, before the subprocess launches.
	preparingBaseline = 0.1

	// processingBaseline is the progress recorded when the tool launches. A
	// small nonzero value signals that work has begun.
	processingBaseline = 0.2

	// failureExcerptLimit caps how much tool error output lands in the stage
	// message shown to clients.
	failureExcerptLimit = 100

	preparingStage  = "Preparing images..."
	processingStage = "Processing images..."
	completedStage  = "Processing complete"
)

// runWorker drives one job from pending to a terminal state. It never lets a
// panic escape: any unexpected failure becomes a failed transition so the job
// cannot stay stuck in processing.
func (m *Manager) runWorker(ctx context.Context, job jobs.Job) {
	defer m.wg.Done()

	logger := m.logger.With(logging.String(logging.FieldJobID, job.ID))

	defer func() {
		if r := recover(); r != nil {
			stage := "Error: " + textutil.Excerpt(fmt.Sprint(r), failureExcerptLimit)
			m.failJob(logger, job.ID, stage)
			logger.Error("worker panic recovered", logging.Any("panic", r))
		}
	}()

	if err := m.tool.Available(ctx); err != nil {
		stage := fmt.Sprintf(
			"Error: %s CLI tool not installed. Install it or point [tool].binary at an alternative reconstruction toolchain",
			m.cfg.Tool.Binary,
		)
		m.failJob(logger, job.ID, stage)
		logger.Warn("reconstruction tool unavailable", logging.Error(err))
		return
	}

	if err := m.store.Update(ctx, job.ID, func(j *jobs.Job) error {
		j.SetProcessing(preparingStage, preparingBaseline)
		return nil
	}); err != nil {
		logger.Error("failed to persist processing transition", logging.Error(err))
		return
	}

	if err := m.layout.EnsureResultsRoot(); err != nil {
		m.failJob(logger, job.ID, "Error: "+textutil.Excerpt(err.Error(), failureExcerptLimit))
		return
	}
	resultPath := m.layout.ResultPath(job.ID)

	if err := m.store.Update(ctx, job.ID, func(j *jobs.Job) error {
		j.SetProcessing(processingStage, processingBaseline)
		return nil
	}); err != nil {
		logger.Error("failed to persist processing stage", logging.Error(err))
		return
	}

	logger.Info("reconstruction started",
		logging.String("mode", string(job.Mode)),
		logging.String("input_dir", job.InputDir),
		logging.String("artifact", resultPath),
	)
	started := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- m.tool.Reconstruct(ctx, job.InputDir, resultPath, job.Mode == jobs.ModeArea)
	}()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval())
	defer ticker.Stop()

	increment := m.cfg.Workflow.HeartbeatIncrement
	ceiling := m.cfg.Workflow.HeartbeatCeiling

	for {
		select {
		case err := <-done:
			m.finalize(ctx, logger, job.ID, resultPath, started, err)
			return
		case <-ticker.C:
			if err := m.store.Update(ctx, job.ID, func(j *jobs.Job) error {
				j.AdvanceHeartbeat(increment, ceiling)
				return nil
			}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) finalize(ctx context.Context, logger *slog.Logger, jobID, resultPath string, started time.Time, runErr error) {
	if runErr == nil {
		// The artifact must exist at the moment completion is recorded.
		if _, err := os.Stat(resultPath); err != nil {
			m.failJob(logger, jobID, "Processing failed: tool produced no output artifact")
			return
		}
		if err := m.store.Update(ctx, jobID, func(j *jobs.Job) error {
			j.SetCompleted(completedStage, resultPath)
			return nil
		}); err != nil {
			logger.Error("failed to persist completion", logging.Error(err))
			return
		}
		logger.Info("reconstruction completed",
			logging.Duration("elapsed", time.Since(started)),
			logging.String("artifact", resultPath),
		)
		return
	}

	detail := runErr.Error()
	var execErr *photogram.ExecError
	if errors.As(runErr, &execErr) && execErr.Stderr != "" {
		detail = execErr.Stderr
	}
	stage := "Processing failed: " + textutil.Excerpt(detail, failureExcerptLimit)
	m.failJob(logger, jobID, stage)
	logger.Warn("reconstruction failed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Error(runErr),
	)
}

// failJob persists a failed transition. It uses a background context so the
// failure is recorded even when the manager context is already cancelled.
func (m *Manager) failJob(logger *slog.Logger, jobID, stage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Update(ctx, jobID, func(j *jobs.Job) error {
		j.SetFailed(stage)
		return nil
	}); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
}
