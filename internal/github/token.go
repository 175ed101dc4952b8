package github

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// TokenSource supplies the credential sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access token.
type StaticToken string

// Token returns the token, failing when it is empty.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("token is empty")
	}
	return string(s), nil
}

// TokenRefreshBuffer is how long before expiry an installation token is renewed.
const TokenRefreshBuffer = 5 * time.Minute

type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AppTokenSource authenticates as a GitHub App installation. It exchanges a
// signed JWT for an installation token and caches it until shortly before
// it expires.
type AppTokenSource struct {
	mu sync.Mutex

	jwt            *JWTGenerator
	installationID int64
	clientOpts     []ClientOption
	nowFunc        func() time.Time

	token     string
	expiresAt time.Time
}

// AppTokenOption configures an AppTokenSource.
type AppTokenOption func(*AppTokenSource)

// WithExchangeOptions sets the client options used for the token exchange
// (base URL, HTTP client).
func WithExchangeOptions(opts ...ClientOption) AppTokenOption {
	return func(a *AppTokenSource) {
		a.clientOpts = append(a.clientOpts, opts...)
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(fn func() time.Time) AppTokenOption {
	return func(a *AppTokenSource) {
		a.nowFunc = fn
	}
}

// NewAppTokenSource creates a token source for the given installation.
func NewAppTokenSource(gen *JWTGenerator, installationID int64, opts ...AppTokenOption) (*AppTokenSource, error) {
	if gen == nil {
		return nil, fmt.Errorf("JWT generator is required")
	}
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}

	a := &AppTokenSource{
		jwt:            gen,
		installationID: installationID,
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Token returns a cached installation token or fetches a new one.
func (a *AppTokenSource) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.expiresAt.After(a.nowFunc().Add(TokenRefreshBuffer)) {
		return a.token, nil
	}

	signed, err := a.jwt.Generate(MaxJWTDuration)
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT: %w", err)
	}

	exchange := NewClient(StaticToken(signed), a.clientOpts...)
	path := fmt.Sprintf("/app/installations/%d/access_tokens", a.installationID)

	var tok installationToken
	if err := exchange.Do(ctx, http.MethodPost, path, nil, &tok); err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("failed to exchange token: empty token in response")
	}

	a.token = tok.Token
	a.expiresAt = tok.ExpiresAt
	return a.token, nil
}

// ExpiresAt returns the expiry of the cached token (zero before the first fetch).
func (a *AppTokenSource) ExpiresAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expiresAt
}
