package config

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	defaultRedirectURI       = "http://127.0.0.1:65010/callback"
	defaultUserAgent         = "go:dank:0.1"
	defaultStorageBackend    = "file"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultRequestLogging    = "on_fail"
	defaultTimeout           = "30s"
	defaultRequestsPerMinute = 60
	defaultParallel          = 4
	defaultMaxSize           = "0"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			RedirectURI: defaultRedirectURI,
			UserAgent:   defaultUserAgent,
		},
		Storage: StorageConfig{
			Backend: defaultStorageBackend,
		},
		Logging: LoggingConfig{
			LogLevel:       defaultLogLevel,
			LogFormat:      defaultLogFormat,
			RequestLogging: defaultRequestLogging,
		},
		Network: NetworkConfig{
			Timeout:           defaultTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Download: DownloadConfig{
			Parallel: defaultParallel,
			MaxSize:  defaultMaxSize,
		},
	}
}
