package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForm(t *testing.T) {
	form, err := parseForm([]string{"id=t3_abc", "dir=1", "text=a=b", "empty="})
	require.NoError(t, err)

	assert.Equal(t, "t3_abc", form.Get("id"))
	assert.Equal(t, "a=b", form.Get("text"))
	assert.True(t, form.Has("empty"))

	_, err = parseForm([]string{"=value"})
	assert.Error(t, err)

	form, err = parseForm(nil)
	require.NoError(t, err)
	assert.Empty(t, form)
}

func TestWriteBody(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		pretty bool
		want   string
	}{
		{"raw json", `{"a":1}`, false, "{\"a\":1}\n"},
		{"pretty json", `{"a":1}`, true, "{\n  \"a\": 1\n}\n"},
		{"pretty ignores non-json", "<html>", true, "<html>\n"},
		{"keeps trailing newline", "ok\n", false, "ok\n"},
		{"empty", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			require.NoError(t, writeBody(&buf, []byte(tt.body), tt.pretty))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestValidMethods(t *testing.T) {
	for _, m := range []string{"get", "post", "put", "patch", "delete"} {
		assert.True(t, validMethods[strings.ToUpper(m)], m)
	}

	assert.False(t, validMethods["HEAD"])
}
