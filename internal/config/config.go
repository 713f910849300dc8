// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for dank. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	App      AppConfig      `toml:"app"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Network  NetworkConfig  `toml:"network"`
	Download DownloadConfig `toml:"download"`
}

// AppConfig identifies the registered Reddit application. client_id comes
// from the "installed app" registration; it has no secret.
type AppConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	DeviceID    string `toml:"device_id"`
	UserAgent   string `toml:"user_agent"`
}

// StorageConfig selects where OAuth tokens are persisted.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	DSN     string `toml:"dsn"`
}

// LoggingConfig controls log output. request_logging sets the API client's
// per-request logging mode.
type LoggingConfig struct {
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	RequestLogging string `toml:"request_logging"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	Timeout           string `toml:"timeout"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// DownloadConfig controls media downloads.
type DownloadConfig struct {
	Dir      string `toml:"dir"`
	Parallel int    `toml:"parallel"`
	MaxSize  string `toml:"max_size"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath     string  // --config flag (empty = use default)
	StorageBackend *string // --storage flag
	DownloadDir    *string // --dir flag of the get command
}
