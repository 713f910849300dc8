package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "dank"

// File names inside the config and data directories.
const (
	configFileName   = "config.toml"
	tokenDirName     = "tokens"
	databaseFileName = "credentials.db"
	deviceIDFileName = "device_id"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/dank).
// On macOS, uses ~/Library/Application Support/dank.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", home, ".config")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for tokens, the
// credential database and the device ID.
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/dank).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", home, filepath.Join(".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

func xdgDir(envVar, home, fallback string) string {
	if xdg := os.Getenv(envVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, fallback, appName)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultDownloadDir returns ~/Downloads/dank.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, "Downloads", appName)
}

// StoragePath returns the configured storage path, or the backend's default
// location in the data directory.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return expandTilde(c.Storage.Path)
	}

	switch c.Storage.Backend {
	case "sqlite":
		return filepath.Join(DefaultDataDir(), databaseFileName)
	default:
		return filepath.Join(DefaultDataDir(), tokenDirName)
	}
}

// DownloadDir returns the configured download directory with ~ expanded.
func (c *Config) DownloadDir() string {
	if c.Download.Dir == "" {
		return DefaultDownloadDir()
	}

	return expandTilde(c.Download.Dir)
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
