package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_Suggestion(t *testing.T) {
	path := writeTestConfig(t, "[app]\nclient_idd = \"x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), `did you mean "app.client_id"`)
}

func TestLoad_UnknownSection_Suggestion(t *testing.T) {
	path := writeTestConfig(t, "[loging]\nlog_level = \"debug\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config section "loging"`)
	assert.Contains(t, err.Error(), `"logging"`)
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, "[network]\ncompletely_unrelated_key = true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownTopLevelKey(t *testing.T) {
	path := writeTestConfig(t, "client_id = \"x\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"client_idd", "client_id", 1},
		{"timeot", "timeout", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "backend", closestMatch("backnd", knownKeys["storage"]))
	assert.Empty(t, closestMatch("zzzzzzzzzz", knownKeys["storage"]))
}
