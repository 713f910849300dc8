package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DeviceID returns the configured device ID, or the per-installation ID
// stored in dataDir, generating and persisting a random UUID on first use.
// Reddit's installed_client grant requires a stable ID per device.
func (c *Config) DeviceID(dataDir string) (string, error) {
	if c.App.DeviceID != "" {
		return c.App.DeviceID, nil
	}

	path := filepath.Join(dataDir, deviceIDFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading device id: %w", err)
	}

	id := uuid.NewString()

	if err := os.MkdirAll(dataDir, 0o700); err != nil { //nolint:mnd // owner-only dir perms
		return "", fmt.Errorf("creating data dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil { //nolint:mnd // owner-only file perms
		return "", fmt.Errorf("writing device id: %w", err)
	}

	return id, nil
}
