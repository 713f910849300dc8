package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dankgo/dank/internal/auth"
	"github.com/dankgo/dank/internal/reddit"
)

// openURL launches the browser during login. Tests replace it.
var openURL = openBrowser

// errNotLoggedIn is shown when a command needs a user session.
var errNotLoggedIn = errors.New("not logged in; run 'dank login' first")

func newLoginCmd() *cobra.Command {
	var paste bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Reddit through the browser",
		Long: `Open Reddit's authorization page and wait for the redirect on the
configured redirect_uri. With --paste, print the URL instead and read the
redirected URL from stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, paste)
		},
	}

	cmd.Flags().BoolVar(&paste, "paste", false, "paste the redirected URL instead of running a callback server")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the user token and return to anonymous access",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the logged-in Reddit account",
		RunE:  runWhoami,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session state without contacting Reddit",
		RunE:  runStatus,
	}
}

func runLogin(cmd *cobra.Command, paste bool) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	rs, err := NewRedditSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer rs.Close()

	logger.Info("login started", "backend", rs.Backend)

	authURL, err := rs.Session.AuthorizationURL()
	if err != nil {
		return err
	}

	var resultURL string

	if paste {
		resultURL, err = readPastedURL(cmd.InOrStdin(), authURL)
	} else {
		resultURL, err = awaitBrowserRedirect(ctx, resolvedCfg.App.RedirectURI, authURL, logger)
	}

	if err != nil {
		return err
	}

	if err := rs.Session.CompleteLogin(ctx, resultURL); err != nil {
		return err
	}

	name, err := rs.Session.CurrentUserName(ctx)
	if err != nil {
		logger.Warn("login succeeded but fetching the account failed", "error", err)
		statusf(flagQuiet, "Login successful.\n")

		return nil
	}

	logger.Info("login successful", "user", name)
	statusf(flagQuiet, "Logged in as u/%s.\n", name)

	return nil
}

// awaitBrowserRedirect serves the redirect URI locally, opens the browser
// and returns the URL Reddit redirected to.
func awaitBrowserRedirect(ctx context.Context, redirectURI, authURL string, logger *slog.Logger) (string, error) {
	resultCh := make(chan callbackResult, 1)

	srv, err := startCallbackServer(ctx, redirectURI, resultCh, logger)
	if err != nil {
		return "", err
	}
	defer shutdownCallbackServer(srv, logger)

	launchBrowser(authURL, openURL, logger)

	return waitForCallback(ctx, resultCh)
}

// readPastedURL prints authURL and reads the redirected URL from in.
func readPastedURL(in io.Reader, authURL string) (string, error) {
	// Prompts must always be visible, so they bypass --quiet.
	fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n\n", authURL)
	fmt.Fprint(os.Stderr, "Paste the URL you were redirected to: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading redirected URL: %w", err)
		}

		return "", errors.New("no redirected URL given")
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", errors.New("no redirected URL given")
	}

	return line, nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	rs, err := NewRedditSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer rs.Close()

	logger.Info("logout started")

	if err := rs.Session.Logout(ctx); err != nil {
		if errors.Is(err, auth.ErrNoActiveSession) {
			return errNotLoggedIn
		}

		return err
	}

	logger.Info("logout successful")
	statusf(flagQuiet, "Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LinkKarma    int       `json:"link_karma"`
	CommentKarma int       `json:"comment_karma"`
	Created      time.Time `json:"created"`
	HasMail      bool      `json:"has_mail"`
	IsGold       bool      `json:"is_gold"`
	Over18       bool      `json:"over_18"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	rs, err := NewRedditSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer rs.Close()

	account, err := rs.Session.CurrentUserAccount(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoActiveSession) {
			return errNotLoggedIn
		}

		return fmt.Errorf("fetching account: %w", err)
	}

	if flagJSON {
		return printWhoamiJSON(cmd.OutOrStdout(), account)
	}

	printWhoamiText(cmd.OutOrStdout(), account)

	return nil
}

func printWhoamiJSON(w io.Writer, account *reddit.Account) error {
	out := whoamiOutput{
		ID:           account.ID,
		Name:         account.Name,
		LinkKarma:    account.LinkKarma,
		CommentKarma: account.CommentKarma,
		Created:      account.Created,
		HasMail:      account.HasMail,
		IsGold:       account.IsGold,
		Over18:       account.Over18,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printWhoamiText(w io.Writer, account *reddit.Account) {
	fmt.Fprintf(w, "User:    u/%s\n", account.Name)
	fmt.Fprintf(w, "ID:      %s\n", account.ID)
	fmt.Fprintf(w, "Karma:   %d link, %d comment\n", account.LinkKarma, account.CommentKarma)

	if !account.Created.IsZero() {
		fmt.Fprintf(w, "Created: %s (%s)\n", formatTime(account.Created), formatAge(account.Created, time.Now()))
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Session string `json:"session"`
	Auth    string `json:"auth"`
	User    string `json:"user,omitempty"`
	Backend string `json:"backend"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	rs, err := NewRedditSession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer rs.Close()

	rs.Authority.Restore(ctx)

	out := statusOutput{
		Session: rs.Session.SessionState().String(),
		Auth:    rs.Authority.State().String(),
		User:    rs.Client.AuthenticatedUser(),
		Backend: rs.Backend,
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	printTable(cmd.OutOrStdout(), []string{"SESSION", "AUTH", "USER", "BACKEND"}, [][]string{
		{out.Session, out.Auth, dashIfEmpty(out.User), out.Backend},
	})

	return nil
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
