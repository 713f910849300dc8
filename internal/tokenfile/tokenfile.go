// Package tokenfile reads and writes single-account token files. Each file
// holds one OAuth2 token plus the account context it belongs to, written
// atomically with owner-only permissions.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// File is the on-disk format for token files.
type File struct {
	Account string        `json:"account"`
	Token   *oauth2.Token `json:"token"`
	SavedAt time.Time     `json:"saved_at"`
}

// Load reads a token file. Returns (nil, nil) if the file does not exist.
// A file written for a different account is an error: it means two
// account contexts were mapped onto the same path.
func Load(path, account string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field", path)
	}

	if tf.Account != account {
		return nil, fmt.Errorf("tokenfile: %s belongs to account %q, not %q", path, tf.Account, account)
	}

	return tf.Token, nil
}

// Save writes a token file atomically with 0600 permissions. Token values
// are never logged.
func Save(path, account string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(File{Account: account, Token: tok, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file beside path, syncs it and renames
// it over path, so readers see either the old or the new token.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	abort := func(step string, cause error) error {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("tokenfile: %s: %w", step, cause)
	}

	if err := tmp.Chmod(FilePerms); err != nil {
		return abort("setting permissions", err)
	}

	if _, err := tmp.Write(data); err != nil {
		return abort("writing", err)
	}

	if err := tmp.Sync(); err != nil {
		return abort("syncing", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	return nil
}

// Remove deletes a token file. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}
