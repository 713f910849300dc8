package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dankgo/dank/internal/auth"
)

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call METHOD PATH [key=value...]",
		Short: "Send an authorized request to the Reddit API",
		Long: `Send METHOD PATH to oauth.reddit.com with the current session, logged in
or anonymous. key=value arguments are sent as a form body. An expired token
is refreshed and the request retried once.`,
		Example: `  dank call GET /api/v1/me
  dank call GET "/r/golang/hot?limit=5" --json
  dank call POST /api/vote id=t3_abc dir=1`,
		Args: cobra.MinimumNArgs(2), //nolint:mnd // METHOD and PATH
		RunE: runCall,
	}
}

func runCall(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	method := strings.ToUpper(args[0])
	path := args[1]

	if !validMethods[method] {
		return fmt.Errorf("unsupported method %q", args[0])
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	form, err := parseForm(args[2:])
	if err != nil {
		return err
	}

	rs, err := NewRedditSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer rs.Close()

	body, err := auth.WithAuth(ctx, rs.Guard, func(ctx context.Context) ([]byte, error) {
		// The body is rebuilt per attempt; a retried request needs a fresh reader.
		var reader io.Reader
		if len(form) > 0 {
			reader = strings.NewReader(form.Encode())
		}

		resp, err := rs.Client.Do(ctx, method, path, reader)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	logger.Debug("call complete", "method", method, "path", path, "bytes", len(body))

	return writeBody(cmd.OutOrStdout(), body, flagJSON)
}

// parseForm turns key=value arguments into form values.
func parseForm(args []string) (url.Values, error) {
	form := url.Values{}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form argument %q: expected key=value", arg)
		}

		form.Add(key, value)
	}

	return form, nil
}

// writeBody writes a response body, indenting it when pretty is set and the
// body is JSON.
func writeBody(w io.Writer, body []byte, pretty bool) error {
	if pretty && json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			buf.WriteByte('\n')
			_, err = buf.WriteTo(w)

			return err
		}
	}

	if _, err := w.Write(body); err != nil {
		return err
	}

	if len(body) > 0 && body[len(body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}

	return nil
}

// validMethods are the HTTP methods call accepts.
var validMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}
