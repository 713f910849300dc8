package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Validation range constants.
const (
	minTimeout           = 1 * time.Second
	maxRequestsPerMinute = 600
	minParallel          = 1
	maxParallel          = 32
)

var (
	validBackends        = []string{"file", "sqlite", "postgres", "memory"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
	validLogFormats      = []string{"auto", "text", "json"}
	validRequestLoggings = []string{"never", "on_fail", "always"}
)

// Validate checks all configuration values and returns all errors found,
// so users can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateApp(&cfg.App)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateDownload(&cfg.Download)...)

	return errors.Join(errs...)
}

// ValidateForAuth checks the settings needed to talk to Reddit. It is
// separate from Validate so commands like "config show" work before an
// application is registered.
func ValidateForAuth(cfg *Config) error {
	if cfg.App.ClientID == "" {
		return fmt.Errorf("app.client_id: not set (register an installed app at https://www.reddit.com/prefs/apps and set it, or export %s)", EnvClientID)
	}

	return nil
}

func validateApp(a *AppConfig) []error {
	var errs []error

	u, err := url.Parse(a.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("app.redirect_uri: must be an absolute URL, got %q", a.RedirectURI))
	}

	if a.UserAgent == "" {
		errs = append(errs, errors.New("app.user_agent: must not be empty"))
	}

	return errs
}

func validateStorage(s *StorageConfig) []error {
	var errs []error

	if !slices.Contains(validBackends, s.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend: must be one of %v, got %q", validBackends, s.Backend))
	}

	if s.Backend == "postgres" && s.DSN == "" {
		errs = append(errs, errors.New("storage.dsn: required for the postgres backend"))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !slices.Contains(validLogLevels, l.LogLevel) {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %v, got %q", validLogLevels, l.LogLevel))
	}

	if !slices.Contains(validLogFormats, l.LogFormat) {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %v, got %q", validLogFormats, l.LogFormat))
	}

	if !slices.Contains(validRequestLoggings, l.RequestLogging) {
		errs = append(errs, fmt.Errorf("logging.request_logging: must be one of %v, got %q",
			validRequestLoggings, l.RequestLogging))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("network.timeout: %w", err))
	} else if d < minTimeout {
		errs = append(errs, fmt.Errorf("network.timeout: must be at least %s, got %s", minTimeout, d))
	}

	if n.RequestsPerMinute < 0 || n.RequestsPerMinute > maxRequestsPerMinute {
		errs = append(errs, fmt.Errorf("network.requests_per_minute: must be between 0 and %d, got %d",
			maxRequestsPerMinute, n.RequestsPerMinute))
	}

	return errs
}

func validateDownload(d *DownloadConfig) []error {
	var errs []error

	if d.Parallel < minParallel || d.Parallel > maxParallel {
		errs = append(errs, fmt.Errorf("download.parallel: must be between %d and %d, got %d",
			minParallel, maxParallel, d.Parallel))
	}

	if _, err := ParseSize(d.MaxSize); err != nil {
		errs = append(errs, fmt.Errorf("download.max_size: %w", err))
	}

	return errs
}

// Timeout returns the parsed network timeout. Call after Validate.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Network.Timeout)
	if err != nil {
		return 0
	}

	return d
}

// MaxDownloadBytes returns the parsed download size cap; 0 means no cap.
// Call after Validate.
func (c *Config) MaxDownloadBytes() int64 {
	n, err := ParseSize(c.Download.MaxSize)
	if err != nil {
		return 0
	}

	return n
}
