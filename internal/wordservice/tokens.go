package wordservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// TokenProvider resolves per-user tokens, registering unknown users on the
// fly. The bot token is read-only after process startup.
type TokenProvider struct {
	client   *Client
	botToken string
}

// NewTokenProvider wraps the client with the startup-acquired bot token.
func NewTokenProvider(c *Client, botToken string) *TokenProvider {
	return &TokenProvider{client: c, botToken: botToken}
}

// UserToken returns the token for userID, registering the user with the
// word service if it has never been seen before.
func (p *TokenProvider) UserToken(ctx context.Context, userID int64) (string, error) {
	token, err := p.client.UserToken(ctx, userID, p.botToken)
	if err == nil {
		return token, nil
	}

	var status *StatusError
	if !errors.As(err, &status) || (status.Code != http.StatusNotFound && status.Code != http.StatusUnauthorized) {
		return "", err
	}
	return p.register(ctx, userID)
}

func (p *TokenProvider) register(ctx context.Context, userID int64) (string, error) {
	// The service requires unique credentials per account; the user only
	// ever authenticates through the bot, so they are generated.
	secret := uuid.NewString()
	body := map[string]any{
		"user_id":  userID,
		"email":    fmt.Sprintf("tg-%d@wordbot.invalid", userID),
		"password": secret,
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := p.client.doJSON(ctx, http.MethodPost, "/users/", p.botToken, body, &out); err != nil {
		return "", fmt.Errorf("register user %d: %w", userID, err)
	}
	return out.AccessToken, nil
}
