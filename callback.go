package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the full redirect URL or a server error.
type callbackResult struct {
	url string
	err error
}

// startCallbackServer listens on the host and port of redirectURI and
// forwards the first request to its path on resultCh. The redirect URI must
// match the application registration exactly, so no random port is used.
func startCallbackServer(
	ctx context.Context,
	redirectURI string,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect uri: %w", err)
	}

	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect uri %q is not a local http address; use --paste", redirectURI)
	}

	callbackPath := u.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, redirectURI, resultCh)
	})

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("binding callback listener on %s: %w", u.Host, err)
	}

	logger.Info("callback server listening", slog.String("addr", u.Host), slog.String("path", callbackPath))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("callback server error: %w", serveErr)}
		}
	}()

	return srv, nil
}

// handleOAuthCallback rebuilds the redirect URL the browser was sent to.
// State and code validation happen in CompleteLogin.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, redirectURI string, resultCh chan<- callbackResult) {
	full := redirectURI
	if r.URL.RawQuery != "" {
		full += "?" + r.URL.RawQuery
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>",
			html.EscapeString(errParam))
	} else {
		fmt.Fprint(w, "<html><body><h1>Authorization received</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
	}

	select {
	case resultCh <- callbackResult{url: full}:
	default:
	}
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the auth URL. If it fails, prints the URL
// to stderr so the user can copy-paste it.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.url, nil
	case <-ctx.Done():
		return "", fmt.Errorf("browser login canceled: %w", ctx.Err())
	}
}

// openBrowser opens target in the platform's default browser without
// waiting for it to exit.
func openBrowser(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", target)
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}

	return nil
}
