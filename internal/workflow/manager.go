package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"lathe/internal/config"
	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services/photogram"
	"lathe/internal/storage"
)

// RestartSweepStage is recorded on jobs found in-flight from a previous run.
const RestartSweepStage = "Error: server restarted before the job finished"

// ShutdownSweepStage is recorded on jobs still in-flight at daemon shutdown.
const ShutdownSweepStage = "Error: server stopped before the job finished"

// Manager owns the execution workers. Each submitted job runs on its own
// tracked goroutine that outlives the originating HTTP request; the manager
// context bounds all of them.
type Manager struct {
	cfg    *config.Config
	store  *jobs.Store
	layout *storage.Layout
	tool   photogram.Reconstructor
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *jobs.Store, layout *storage.Layout, tool photogram.Reconstructor, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  store,
		layout: layout,
		tool:   tool,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
}

// Start enables job dispatch. Jobs left in-flight by a previous run are
// failed up front so no entry is ever stuck in a non-terminal state with no
// worker behind it.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	swept, err := m.store.FailInFlight(ctx, RestartSweepStage)
	if err != nil {
		return err
	}
	if swept > 0 {
		m.logger.Info("failed stale in-flight jobs from previous run", logging.Int("count", int(swept)))
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	return nil
}

// Stop cancels running workers, waits for them to settle, and fails any job
// that did not reach a terminal state.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	if swept, err := m.store.FailInFlight(context.Background(), ShutdownSweepStage); err != nil {
		m.logger.Warn("failed to sweep in-flight jobs at shutdown", logging.Error(err))
	} else if swept > 0 {
		m.logger.Info("swept in-flight jobs at shutdown", logging.Int("count", int(swept)))
	}
}

// Dispatch schedules the execution worker for a freshly registered job. The
// call never blocks on the reconstruction itself; the worker runs on the
// manager context so it survives the submitting request.
func (m *Manager) Dispatch(_ context.Context, job *jobs.Job) error {
	if job == nil {
		return errors.New("job required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return errors.New("workflow manager not running")
	}

	m.wg.Add(1)
	go m.runWorker(m.ctx, *job)
	return nil
}
