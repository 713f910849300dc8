package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dankgo/dank/internal/config"
)

// newRootCmd() binds flags via StringVar/BoolVar, which resets the global
// flag variables. Tests set globals after building the command, or let Cobra
// parse them through SetArgs.

// withLoggerFlags sets the logging globals for one test.
func withLoggerFlags(t *testing.T, cfg *config.Config, verbose, quiet bool) {
	t.Helper()

	oldCfg, oldVerbose, oldQuiet := resolvedCfg, flagVerbose, flagQuiet

	t.Cleanup(func() {
		resolvedCfg, flagVerbose, flagQuiet = oldCfg, oldVerbose, oldQuiet
	})

	resolvedCfg, flagVerbose, flagQuiet = cfg, verbose, quiet
}

func TestNewLogger_Levels(t *testing.T) {
	debugCfg := config.DefaultConfig()
	debugCfg.Logging.LogLevel = "debug"

	warnCfg := config.DefaultConfig()
	warnCfg.Logging.LogLevel = "warn"

	tests := []struct {
		name    string
		cfg     *config.Config
		verbose bool
		quiet   bool
		enabled slog.Level
		muted   slog.Level
	}{
		{"no config", nil, false, false, slog.LevelInfo, slog.LevelDebug},
		{"config debug", debugCfg, false, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"config warn", warnCfg, false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose beats config", warnCfg, true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet beats verbose", debugCfg, true, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLoggerFlags(t, tt.cfg, tt.verbose, tt.quiet)

			h := newLogger(&bytes.Buffer{}, true).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.muted))
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	tests := []struct {
		format   string
		terminal bool
		wantJSON bool
	}{
		{"auto", true, false},
		{"auto", false, true},
		{"text", false, false},
		{"json", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Logging.LogFormat = tt.format
			withLoggerFlags(t, cfg, false, false)

			var buf bytes.Buffer
			newLogger(&buf, tt.terminal).Info("hello", "user", "spez")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "msg=hello")
			}

			assert.Contains(t, buf.String(), "spez")
		})
	}
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"login", "logout", "whoami", "status", "call", "get", "config"} {
		sub, _, err := cmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, sub.Name())
		}
	}
}

func TestLoadConfig_InvalidFileFails(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("DANK_CONFIG", env.dir+"/missing/config.toml")

	// A missing file falls back to defaults, which lack a client id.
	_, err := env.run(t, "status")
	assert.ErrorContains(t, err, "client_id")

	_, err = env.run(t, "config", "show", "--storage", "floppy")
	assert.ErrorContains(t, err, "storage.backend")
}
