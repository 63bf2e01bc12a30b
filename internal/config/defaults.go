package config

const (
	defaultLogDir      = "~/.local/share/repack/logs"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultLockTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Compaction: Compaction{
			LockTimeout: defaultLockTimeout,
			Journal:     true,
		},
	}
}
