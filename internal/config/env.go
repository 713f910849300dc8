package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig         = "DANK_CONFIG"
	EnvClientID       = "DANK_CLIENT_ID"
	EnvStorageBackend = "DANK_STORAGE_BACKEND"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath     string // DANK_CONFIG: override config file path
	ClientID       string // DANK_CLIENT_ID: Reddit application id
	StorageBackend string // DANK_STORAGE_BACKEND: token storage backend
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:     os.Getenv(EnvConfig),
		ClientID:       os.Getenv(EnvClientID),
		StorageBackend: os.Getenv(EnvStorageBackend),
	}
}
