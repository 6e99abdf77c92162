package config

const (
	defaultOutputDir     = "~/.local/share/sonaris/output"
	defaultLogDir        = "~/.local/share/sonaris/logs"
	defaultCatalogPath   = "~/.local/share/sonaris/catalog.db"
	defaultFormat        = "png"
	defaultJPEGQuality   = 90
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultSettleSeconds = 2
	defaultWatchPattern  = "*.aris"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Convert: Convert{
			Format:      defaultFormat,
			JPEGQuality: defaultJPEGQuality,
		},
		Watch: Watch{
			SettleSeconds: defaultSettleSeconds,
			Pattern:       defaultWatchPattern,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
