package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// meResponse mirrors the /api/v1/me JSON response.
// Unexported; callers get an Account through toAccount.
type meResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
	CreatedUTC   float64 `json:"created_utc"`
	HasMail      bool    `json:"has_mail"`
	IsGold       bool    `json:"is_gold"`
	Over18       bool    `json:"over_18"`
}

func (m *meResponse) toAccount() Account {
	return Account{
		ID:           m.ID,
		Name:         m.Name,
		LinkKarma:    m.LinkKarma,
		CommentKarma: m.CommentKarma,
		Created:      time.Unix(int64(m.CreatedUTC), 0).UTC(),
		HasMail:      m.HasMail,
		IsGold:       m.IsGold,
		Over18:       m.Over18,
	}
}

// Me returns the authenticated user's account and caches the user name
// for AuthenticatedUser.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	if !c.HasActiveUserContext() {
		return nil, fmt.Errorf("reddit: /api/v1/me requires a user session: %w", ErrNotAuthenticated)
	}

	resp, err := c.Do(ctx, http.MethodGet, "/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var mr meResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("reddit: decoding account response: %w", err)
	}

	account := mr.toAccount()

	c.mu.Lock()
	if c.auth != nil && !c.auth.Userless {
		c.userName = account.Name
	}
	c.mu.Unlock()

	c.logger.Debug("fetched account",
		slog.String("name", account.Name),
	)

	return &account, nil
}
