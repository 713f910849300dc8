package config

import (
	"fmt"
	"io"
	"net/url"
)

// RenderEffective writes the resolved configuration as an annotated TOML
// summary to w. Secrets in the storage DSN are masked.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	ew.printf("[app]\n")
	ew.printf("client_id = %q\n", cfg.App.ClientID)
	ew.printf("redirect_uri = %q\n", cfg.App.RedirectURI)
	ew.printf("device_id = %q\n", cfg.App.DeviceID)
	ew.printf("user_agent = %q\n\n", cfg.App.UserAgent)

	ew.printf("[storage]\n")
	ew.printf("backend = %q\n", cfg.Storage.Backend)
	ew.printf("path = %q\n", cfg.StoragePath())
	ew.printf("dsn = %q\n\n", maskDSN(cfg.Storage.DSN))

	ew.printf("[logging]\n")
	ew.printf("log_level = %q\n", cfg.Logging.LogLevel)
	ew.printf("log_format = %q\n", cfg.Logging.LogFormat)
	ew.printf("request_logging = %q\n\n", cfg.Logging.RequestLogging)

	ew.printf("[network]\n")
	ew.printf("timeout = %q\n", cfg.Network.Timeout)
	ew.printf("requests_per_minute = %d\n\n", cfg.Network.RequestsPerMinute)

	ew.printf("[download]\n")
	ew.printf("dir = %q\n", cfg.DownloadDir())
	ew.printf("parallel = %d\n", cfg.Download.Parallel)
	ew.printf("max_size = %q\n", cfg.Download.MaxSize)

	return ew.err
}

// maskDSN hides the password of a URL-form DSN.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}

	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}

	return u.String()
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
