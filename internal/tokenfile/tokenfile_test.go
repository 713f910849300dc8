package tokenfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_FileNotFound(t *testing.T) {
	tok, err := Load("/nonexistent/path/token.json", "user")
	assert.Nil(t, tok)
	assert.NoError(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "user.json")

	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	original := &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "bearer",
		Expiry:       expiry,
	}

	require.NoError(t, Save(path, "user", original))

	tok, err := Load(path, "user")
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "refresh-456", tok.RefreshToken)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.True(t, tok.Expiry.Equal(expiry))
}

func TestLoad_WrongAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, "userless", &oauth2.Token{AccessToken: "a"}))

	_, err := Load(path, "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to account")
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"account":"user"}`), FilePerms))

	tok, err := Load(path, "user")
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), FilePerms))

	_, err := Load(path, "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "perms.json")

	require.NoError(t, Save(path, "user", &oauth2.Token{AccessToken: "secret"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_AtomicOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "atomic.json")

	require.NoError(t, Save(path, "user", &oauth2.Token{AccessToken: "first"}))
	require.NoError(t, Save(path, "user", &oauth2.Token{AccessToken: "second"}))

	tok, err := Load(path, "user")
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".token-")
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, "user", &oauth2.Token{AccessToken: "doomed"}))
	require.NoError(t, Remove(path))

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// Removing twice is fine.
	assert.NoError(t, Remove(path))
}
