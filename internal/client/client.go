// Package client is a typed client of the tracker API. A Client is bound to
// one session through its TokenStore.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Proton-105/blackjack-tracker/internal/domain"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/pkg/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxResponseBytes  = 4 << 20
)

// Client talks to the tracker API on behalf of one session.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenStore
	validate *validator.Validate
	breaker  *apperrors.CircuitBreaker
	log      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

// WithCircuitBreaker fails calls fast while the API keeps failing. Transport
// errors and 5xx answers count as failures.
func WithCircuitBreaker(cb *apperrors.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client for baseURL that keeps its credential in tokens.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a client sharing the transport but bound to another session.
func (c *Client) WithTokens(tokens TokenStore) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

// Login exchanges credentials for a token and stores it. API failures are
// returned as *APIError and leave the stored token untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}

	var tok tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", formBody(form), "", nil, &tok); err != nil {
		return err
	}

	if err := c.tokens.SetToken(ctx, tok.AccessToken); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}

	var msg messageResponse
	return c.do(ctx, http.MethodPost, "/register", formBody(form), "", nil, &msg)
}

// Logout forgets the stored token. It makes no network call.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// HasToken reports whether a token is stored.
func (c *Client) HasToken(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

// CurrentUser decodes the subject of the stored token without verifying it.
// A missing or malformed token yields ("", false).
func (c *Client) CurrentUser(ctx context.Context) (string, bool) {
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		c.log.Debug("stored token is malformed", slog.Any("error", err))
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// LoggedInUsername asks the API who the token belongs to.
func (c *Client) LoggedInUsername(ctx context.Context) (string, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return "", err
	}

	var me meResponse
	if err := c.do(ctx, http.MethodGet, "/me", nil, token, nil, &me); err != nil {
		return "", err
	}
	return me.Username, nil
}

// Wallet returns the current balance.
func (c *Client) Wallet(ctx context.Context) (int64, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return 0, err
	}

	var w walletResponse
	if err := c.do(ctx, http.MethodGet, "/wallet", nil, token, nil, &w); err != nil {
		return 0, err
	}
	return *w.Wallet, nil
}

// Games returns every game of the user, newest first.
func (c *Client) Games(ctx context.Context) ([]Game, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}

	var games []Game
	if err := c.do(ctx, http.MethodGet, "/games", nil, token, nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// AddGames submits one ticket under a fresh idempotency key.
func (c *Client) AddGames(ctx context.Context, batch []domain.GameInput) ([]Game, error) {
	return c.AddGamesWithKey(ctx, uuid.NewString(), batch)
}

// AddGamesWithKey submits one ticket. Repeating a key replays the first result
// instead of recording the ticket again.
func (c *Client) AddGamesWithKey(ctx context.Context, key string, batch []domain.GameInput) ([]Game, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := jsonBody(batch)
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if key != "" {
		headers = map[string]string{idempotencyHeader: key}
	}

	var games []Game
	if err := c.do(ctx, http.MethodPost, "/games", body, token, headers, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// DeleteGame removes one game. IsNotFound(err) is true for an unknown id.
func (c *Client) DeleteGame(ctx context.Context, id int64) error {
	token, err := c.requireToken(ctx)
	if err != nil {
		return err
	}

	body, err := jsonBody(map[string]int64{"id": id})
	if err != nil {
		return err
	}

	var msg messageResponse
	return c.do(ctx, http.MethodDelete, "/games", body, token, nil, &msg)
}

// AdjustWallet adds amount to the wallet and returns the new balance.
func (c *Client) AdjustWallet(ctx context.Context, amount int64) (int64, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return 0, err
	}

	body, err := jsonBody(map[string]int64{"price": amount})
	if err != nil {
		return 0, err
	}

	var resp walletUpdateResponse
	if err := c.do(ctx, http.MethodPost, "/update_wallet", body, token, nil, &resp); err != nil {
		return 0, err
	}
	return *resp.Wallet, nil
}

func (c *Client) requireToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

type requestBody struct {
	contentType string
	data        []byte
}

func formBody(values url.Values) *requestBody {
	return &requestBody{contentType: "application/x-www-form-urlencoded", data: []byte(values.Encode())}
}

func jsonBody(v any) (*requestBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &requestBody{contentType: "application/json", data: data}, nil
}

// do performs one request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body *requestBody, token string, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(logger.CorrelationHeader, id)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	c.log.Debug("tracker api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
	}
	if err := c.validateRecord(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
	}
	return nil
}

var errServerStatus = errors.New("server error status")

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}

	var resp *http.Response
	err := c.breaker.Call(func() error {
		var err error
		resp, err = c.http.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func (c *Client) validateRecord(out any) error {
	if games, ok := out.(*[]Game); ok {
		for i := range *games {
			if err := c.validate.Struct((*games)[i]); err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
		}
		return nil
	}

	err := c.validate.Struct(out)
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	return err
}
