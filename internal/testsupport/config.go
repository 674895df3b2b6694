package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lathe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithToolBinary overrides the reconstruction tool binary name.
func WithToolBinary(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tool.Binary = name
	}
}

// WithFastHeartbeat shrinks heartbeat timing so workflow tests finish quickly.
func WithFastHeartbeat() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.HeartbeatInterval = 1
		b.cfg.Workflow.HeartbeatIncrement = 0.1
	}
}

// WithStubbedTool writes a stub tool executable with the provided script body
// and prepends its directory to PATH for the duration of the test. The binary
// name defaults to the config's tool binary.
func WithStubbedTool(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, b.cfg.Tool.Binary)
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub tool: %v", err)
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
