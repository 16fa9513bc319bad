// Package wordservice is a thin REST client for the backend word service:
// paginated word collections, quiz payloads, and token issuance.
package wordservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"log/slog"

	coreconfig "github.com/m3rciful/wordbot/core/config"
	"github.com/m3rciful/wordbot/core/logger"
	"github.com/m3rciful/wordbot/core/telegram/netutil"
)

const (
	defaultDialTimeout   = 5 * time.Second
	defaultRetryAttempts = 2
	defaultRetryBackoff  = time.Second
)

// Collection is one server-owned word collection.
type Collection struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// CollectionPage is one page of the collections listing. Page is 1-indexed.
type CollectionPage struct {
	Items []Collection `json:"items"`
	Page  int          `json:"page"`
	Pages int          `json:"pages"`
}

// Word is one entry of a collection quiz payload. Distractors are computed
// client-side from sibling Translate values; the service never supplies
// wrong answers.
type Word struct {
	ID        int64  `json:"id"`
	Word      string `json:"word"`
	Translate string `json:"translate"`
}

// StatusError reports a non-2xx service response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wordservice: unexpected status %d: %s", e.Code, e.Body)
}

// Client talks to the word service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client with a tuned transport that retries transient
// network failures.
func New(cfg coreconfig.WordServiceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &retryTransport{
				base:       transport,
				maxRetries: defaultRetryAttempts,
				backoff:    defaultRetryBackoff,
			},
		},
	}
}

// Collections fetches one page of word collections.
func (c *Client) Collections(ctx context.Context, token string, page, size int) (*CollectionPage, error) {
	if page < 1 {
		page = 1
	}
	var out CollectionPage
	path := fmt.Sprintf("/collections?page=%d&size=%d", page, size)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return &out, nil
}

// CollectionQuiz fetches the quiz payload of one collection.
func (c *Client) CollectionQuiz(ctx context.Context, token string, id int64) ([]Word, error) {
	var out struct {
		Words []Word `json:"words"`
	}
	path := fmt.Sprintf("/collections/%d/quiz", id)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, fmt.Errorf("collection %d quiz: %w", id, err)
	}
	return out.Words, nil
}

// BotToken exchanges bot credentials for the bot-level token.
func (c *Client) BotToken(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login/access-token", "", body, &out); err != nil {
		return "", fmt.Errorf("bot token: %w", err)
	}
	return out.AccessToken, nil
}

// UserToken resolves a per-user token using the bot token.
func (c *Client) UserToken(ctx context.Context, userID int64, botToken string) (string, error) {
	body := map[string]int64{"user_id": userID}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login/access-token-bot", botToken, body, &out); err != nil {
		return "", fmt.Errorf("user %d token: %w", userID, err)
	}
	return out.AccessToken, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WS.Warn("request failed",
			slog.String("event", "ws.request"),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	logger.WS.Debug("request done",
		slog.String("event", "ws.request"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: logger.SanitizeLimit(string(raw), 256)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// retryTransport retries transient network failures, mirroring the tuned
// client used for the Telegram API.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
