package reddit

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// UserlessAppCredentials authenticate the application itself, without a
// signed-in user. DeviceID must be stable per installation.
type UserlessAppCredentials struct {
	ClientID string
	DeviceID string
}

// InstalledAppCredentials authenticate a signed-in user of an installed
// (secretless) application.
type InstalledAppCredentials struct {
	ClientID    string
	RedirectURI string
}

// OAuthData is the token payload produced by a handshake, refresh or
// challenge exchange.
type OAuthData struct {
	Token    *oauth2.Token
	Userless bool
	Scopes   []string
}

// Expired reports whether the access token can no longer be used.
func (d *OAuthData) Expired() bool {
	return d == nil || d.Token == nil || !d.Token.Valid()
}

// newOAuthData builds OAuthData from an oauth2 token, pulling the granted
// scopes out of the token response extras.
func newOAuthData(tok *oauth2.Token, userless bool) *OAuthData {
	data := &OAuthData{Token: tok, Userless: userless}

	if raw, ok := tok.Extra("scope").(string); ok && raw != "" {
		data.Scopes = strings.Fields(strings.ReplaceAll(raw, ",", " "))
	}

	return data
}

// Account is the logged-in user's account as returned by /api/v1/me.
type Account struct {
	ID           string
	Name         string
	LinkKarma    int
	CommentKarma int
	Created      time.Time
	HasMail      bool
	IsGold       bool
	Over18       bool
}

// LoggingMode controls request-level logging inside Client.
type LoggingMode int32

// Logging modes.
const (
	LoggingNever LoggingMode = iota
	LoggingOnFail
	LoggingAlways
)

func (m LoggingMode) String() string {
	switch m {
	case LoggingNever:
		return "never"
	case LoggingOnFail:
		return "on_fail"
	case LoggingAlways:
		return "always"
	default:
		return fmt.Sprintf("LoggingMode(%d)", int32(m))
	}
}

// ParseLoggingMode parses the config representation of a LoggingMode.
func ParseLoggingMode(s string) (LoggingMode, error) {
	switch s {
	case "never":
		return LoggingNever, nil
	case "on_fail", "":
		return LoggingOnFail, nil
	case "always":
		return LoggingAlways, nil
	default:
		return LoggingNever, fmt.Errorf("reddit: unknown logging mode %q", s)
	}
}
