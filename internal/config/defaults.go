package config

const (
	defaultUploadDir  = "~/.local/share/lathe/uploads"
	defaultWorkDir    = "~/.local/share/lathe/work"
	defaultResultsDir = "~/.local/share/lathe/results"
	defaultLogDir     = "~/.local/share/lathe/logs"
	defaultAPIBind    = "127.0.0.1:1100"

	defaultToolBinary       = "photogrammetry"
	defaultToolProbeTimeout = 2

	defaultHeartbeatInterval  = 1
	defaultHeartbeatIncrement = 0.01
	defaultHeartbeatCeiling   = 0.9

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			WorkDir:    defaultWorkDir,
			ResultsDir: defaultResultsDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tool: Tool{
			Binary:       defaultToolBinary,
			ProbeTimeout: defaultToolProbeTimeout,
		},
		Workflow: Workflow{
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatIncrement: defaultHeartbeatIncrement,
			HeartbeatCeiling:   defaultHeartbeatCeiling,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
