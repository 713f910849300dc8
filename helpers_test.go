package main

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeReddit serves the token, revoke and API endpoints on one server.
type fakeReddit struct {
	srv *httptest.Server

	userlessGrants atomic.Int32
	codeGrants     atomic.Int32
	refreshGrants  atomic.Int32
	revokes        atomic.Int32
	flakyCalls     atomic.Int32
	lastForm       atomic.Value
}

const (
	fakeUserlessToken = "userless-access"
	fakeUserToken     = "user-access"
)

func newFakeReddit(t *testing.T) *fakeReddit {
	t.Helper()

	f := &fakeReddit{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "https://oauth.reddit.com/grants/installed_client":
			f.userlessGrants.Add(1)
			fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","expires_in":3600,"scope":"*"}`, fakeUserlessToken)
		case "authorization_code":
			f.codeGrants.Add(1)
			fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","refresh_token":"user-refresh","expires_in":3600,"scope":"identity read"}`, fakeUserToken)
		case "refresh_token":
			f.refreshGrants.Add(1)
			fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","expires_in":3600,"scope":"identity read"}`, fakeUserToken)
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	})

	mux.HandleFunc("POST /api/v1/revoke_token", func(w http.ResponseWriter, _ *http.Request) {
		f.revokes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fakeUserToken {
			http.Error(w, `{"message":"Forbidden"}`, http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1w72","name":"spez","link_karma":10,"comment_karma":20,"created_utc":1118030400}`)
	})

	// First request is rejected as expired, later ones succeed.
	mux.HandleFunc("GET /api/flaky", func(w http.ResponseWriter, _ *http.Request) {
		if f.flakyCalls.Add(1) == 1 {
			http.Error(w, `{"message":"Unauthorized","error":401}`, http.StatusUnauthorized)
			return
		}

		fmt.Fprint(w, `{"ok":true}`)
	})

	mux.HandleFunc("POST /api/echo", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.lastForm.Store(r.PostForm.Encode())
		fmt.Fprint(w, `{"json":{"errors":[]}}`)
	})

	mux.HandleFunc("GET /media/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "missing.jpg" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(bytes.Repeat([]byte{0xff}, 512))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

// cliEnv is an isolated home, config and fake Reddit for one test.
type cliEnv struct {
	reddit      *fakeReddit
	dir         string
	redirectURI string
}

// newCLIEnv points every command at a fake Reddit and a temp config file
// with a file token store.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	f := newFakeReddit(t)
	dir := t.TempDir()

	oldAPI, oldWWW, oldOpen := apiBaseURL, wwwBaseURL, openURL
	apiBaseURL, wwwBaseURL = f.srv.URL, f.srv.URL

	t.Cleanup(func() {
		apiBaseURL, wwwBaseURL, openURL = oldAPI, oldWWW, oldOpen
		resolvedCfg = nil
	})

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", freePort(t))

	cfgPath := filepath.Join(dir, "config.toml")
	cfgBody := fmt.Sprintf(`[app]
client_id = "test-client"
device_id = "test-device"
redirect_uri = %q

[storage]
backend = "file"
path = %q

[logging]
log_level = "error"

[download]
dir = %q
parallel = 2
`, redirectURI, filepath.Join(dir, "tokens"), filepath.Join(dir, "media"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o600))

	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("DANK_CONFIG", cfgPath)
	t.Setenv("DANK_CLIENT_ID", "")
	t.Setenv("DANK_STORAGE_BACKEND", "")

	return &cliEnv{reddit: f, dir: dir, redirectURI: redirectURI}
}

// run executes the root command with args and returns what it wrote to
// stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))

	err := cmd.Execute()

	return out.String(), err
}

// freePort returns a localhost port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}
