package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Acuveth/life-rank/internal/models"
	"github.com/Acuveth/life-rank/internal/store"
	"github.com/Acuveth/life-rank/pkg/logger"
	"github.com/Acuveth/life-rank/pkg/metrics"
)

// Client is the thin wrapper around the LifeRank REST API. Authenticated
// calls read the bearer credential from the session store on every request
// rather than caching it, so concurrent session updates are always honored.
type Client struct {
	baseURL string
	http    *http.Client
	store   store.Store
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, st store.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   st,
		now:     time.Now,
	}
}

// AuthResult is the payload of login/register/google exchanges.
type AuthResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	Location *string `json:"location,omitempty"`
}

// ChatReply is a single coach-chat message as returned by the server.
type ChatReply struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeGoogleToken swaps a Google ID token for a LifeRank session.
func (c *Client) ExchangeGoogleToken(ctx context.Context, token string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"token": token}
	if err := c.do(ctx, http.MethodPost, "/auth/google", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySession asks the server whether the stored credential is still valid.
func (c *Client) VerifySession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/verify-token", nil, nil, true)
}

func (c *Client) FetchProfile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd models.UserUpdate) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPut, "/users/me", upd, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/users/me", nil, nil, true)
}

func (c *Client) SendChatMessage(ctx context.Context, text string) (*ChatReply, error) {
	var out ChatReply
	body := map[string]string{"message": text}
	if err := c.do(ctx, http.MethodPost, "/chat/send", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChatHistory(ctx context.Context, limit int) ([]ChatReply, error) {
	path := "/chat/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []ChatReply
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one API round trip. When auth is set, the latest committed
// credential is attached as a bearer header; a locally expired credential is
// rejected up front (and the store cleared) without touching the network.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, auth bool) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransient, Message: fmt.Sprintf("encode request: %v", err)}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return &Error{Kind: KindTransient, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth {
		rec, err := c.store.Load(ctx)
		if err != nil {
			return &Error{Kind: KindTransient, Message: fmt.Sprintf("read credential store: %v", err)}
		}
		if rec == nil {
			metrics.AuthRejected.WithLabelValues(method + " " + path).Inc()
			return &Error{Kind: KindAuthRejected, Message: "no stored credential"}
		}
		if rec.Expired(c.now()) {
			// never send a token we already know is stale
			if err := c.store.Clear(ctx); err != nil {
				logger.Warnf("failed to clear expired credential: %v", err)
			}
			metrics.AuthRejected.WithLabelValues(method + " " + path).Inc()
			return &Error{Kind: KindAuthRejected, Message: "session expired"}
		}
		req.Header.Set("Authorization", "Bearer "+rec.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Kind: classify(resp.StatusCode), Status: resp.StatusCode, Message: errorDetail(resp.Body)}
		if apiErr.Kind == KindAuthRejected {
			metrics.AuthRejected.WithLabelValues(method + " " + path).Inc()
		}
		logger.Debugf("%s %s failed: %v", method, path, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindTransient, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

// errorDetail pulls the message out of a FastAPI-style {"detail": ...} body.
// Validation errors carry a structured detail; those fall back to "".
func errorDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Detail.(string); ok {
		return s
	}
	return ""
}
