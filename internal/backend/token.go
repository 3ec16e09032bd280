package backend

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenProvider supplies the bearer token for authenticated calls.
// Storage is the caller's concern.
type TokenProvider interface {
	// Token returns the current token, or false when signed out
	Token(ctx context.Context) (string, bool)
	IsAuthenticated(ctx context.Context) bool
}

// StaticTokenProvider serves a fixed token. An empty token means signed out.
type StaticTokenProvider string

func (s StaticTokenProvider) Token(context.Context) (string, bool) {
	t := strings.TrimSpace(string(s))
	return t, t != ""
}

func (s StaticTokenProvider) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.Token(ctx)
	return ok
}

// JWTTokenProvider wraps another provider and treats expired JWTs as signed out.
// Signatures are not checked here; the server verifies them.
type JWTTokenProvider struct {
	next TokenProvider
	now  func() time.Time
	// tokens expiring within skew are treated as expired
	skew time.Duration
}

// NewJWTTokenProvider creates a provider with a 30 second expiry skew
func NewJWTTokenProvider(next TokenProvider, now func() time.Time) *JWTTokenProvider {
	if now == nil {
		now = time.Now
	}
	return &JWTTokenProvider{next: next, now: now, skew: 30 * time.Second}
}

func (p *JWTTokenProvider) Token(ctx context.Context) (string, bool) {
	token, ok := p.next.Token(ctx)
	if !ok {
		return "", false
	}
	if p.expired(token) {
		return "", false
	}
	return token, true
}

func (p *JWTTokenProvider) IsAuthenticated(ctx context.Context) bool {
	_, ok := p.Token(ctx)
	return ok
}

// expired reports whether token is a JWT whose exp has passed.
// Opaque tokens are not JWTs and are passed through.
func (p *JWTTokenProvider) expired(token string) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !p.now().Add(p.skew).Before(claims.ExpiresAt.Time)
}
