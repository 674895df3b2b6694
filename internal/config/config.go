package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir  string `toml:"upload_dir"`
	WorkDir    string `toml:"work_dir"`
	ResultsDir string `toml:"results_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Tool contains configuration for the external reconstruction tool.
type Tool struct {
	// Binary is the reconstruction executable resolved on PATH.
	Binary string `toml:"binary"`
	// AreaFlag is an optional flag appended when a job requests area capture
	// mode. Left empty, area mode is accepted but not forwarded.
	AreaFlag string `toml:"area_flag"`
	// ProbeTimeout bounds the tool availability check, in seconds.
	ProbeTimeout int `toml:"probe_timeout"`
	// MaxRuntime caps a single reconstruction run, in seconds. Zero means
	// unlimited.
	MaxRuntime int `toml:"max_runtime"`
}

// Workflow contains heartbeat progress timing.
type Workflow struct {
	// HeartbeatInterval is the liveness poll interval while the tool runs,
	// in seconds.
	HeartbeatInterval int `toml:"heartbeat_interval"`
	// HeartbeatIncrement is added to job progress on each tick.
	HeartbeatIncrement float64 `toml:"heartbeat_increment"`
	// HeartbeatCeiling is the maximum heartbeat progress. Full progress is
	// reserved for verified completion.
	HeartbeatCeiling float64 `toml:"heartbeat_ceiling"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lathe.
//
// Configuration sections by subsystem:
//   - Paths: content directories and API bind address
//   - Tool: external reconstruction tool settings
//   - Workflow: heartbeat progress timing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tool     Tool     `toml:"tool"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lathe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lathe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.UploadDir,
		&c.Paths.WorkDir,
		&c.Paths.ResultsDir,
		&c.Paths.LogDir,
	}
	for _, field := range paths {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Tool.Binary = strings.TrimSpace(c.Tool.Binary)
	c.Tool.AreaFlag = strings.TrimSpace(c.Tool.AreaFlag)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Paths.APIBind == "" {
		return errors.New("config: paths.api_bind is required")
	}
	if c.Tool.Binary == "" {
		return errors.New("config: tool.binary is required")
	}
	if c.Tool.ProbeTimeout <= 0 {
		return errors.New("config: tool.probe_timeout must be positive")
	}
	if c.Tool.MaxRuntime < 0 {
		return errors.New("config: tool.max_runtime must not be negative")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("config: workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatIncrement <= 0 {
		return errors.New("config: workflow.heartbeat_increment must be positive")
	}
	if c.Workflow.HeartbeatCeiling <= 0 || c.Workflow.HeartbeatCeiling >= 1 {
		return errors.New("config: workflow.heartbeat_ceiling must be between 0 and 1 exclusive")
	}
	roots := []struct {
		key string
		dir string
	}{
		{"paths.upload_dir", c.Paths.UploadDir},
		{"paths.work_dir", c.Paths.WorkDir},
		{"paths.results_dir", c.Paths.ResultsDir},
		{"paths.log_dir", c.Paths.LogDir},
	}
	seen := make(map[string]string, len(roots))
	for _, root := range roots {
		if root.dir == "" {
			return fmt.Errorf("config: %s is required", root.key)
		}
		if other, ok := seen[root.dir]; ok {
			return fmt.Errorf("config: %s and %s must be distinct directories", other, root.key)
		}
		seen[root.dir] = root.key
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.WorkDir, c.Paths.ResultsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProbeTimeout returns the tool availability probe bound as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Tool.ProbeTimeout) * time.Second
}

// MaxRuntime returns the reconstruction runtime cap, zero meaning unlimited.
func (c *Config) MaxRuntime() time.Duration {
	return time.Duration(c.Tool.MaxRuntime) * time.Second
}

// HeartbeatInterval returns the heartbeat poll interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
