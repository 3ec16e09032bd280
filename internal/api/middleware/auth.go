package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Tally/internal/api/handlers"
	"Tally/internal/core/posts"
)

// Context keys for storing user information
type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	JWTClaimsKey contextKey = "jwt_claims"
)

// JWTAuth verifies HS256 bearer tokens issued for the dev backend
type JWTAuth struct {
	logger *slog.Logger
	secret []byte
}

// NewJWTAuth creates the middleware
func NewJWTAuth(secret string, logger *slog.Logger) *JWTAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTAuth{secret: []byte(secret), logger: logger}
}

// IssueToken signs a token for userID, valid for ttl
func (m *JWTAuth) IssueToken(userID posts.ID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(m.secret)
}

// RequireAuth rejects requests without a valid token with 401.
// On success the user id and claims are stored in the request context.
func (m *JWTAuth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "Missing or malformed Authorization header", nil)
			return
		}

		claims, err := m.verify(token)
		if err != nil {
			m.logger.Info("auth failure",
				"ip", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			handlers.WriteError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// OptionalAuth loads the user when a valid token is present, but lets
// anonymous requests through. An invalid token is treated as anonymous.
func (m *JWTAuth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verify(token)
		if err != nil {
			m.logger.Debug("ignoring invalid optional token", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (m *JWTAuth) verify(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func withClaims(ctx context.Context, claims *jwt.RegisteredClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, posts.ID(claims.Subject))
	return context.WithValue(ctx, JWTClaimsKey, claims)
}

// GetUserID extracts the authenticated user id from the request context.
// Returns an empty id for anonymous requests.
func GetUserID(r *http.Request) posts.ID {
	id, _ := r.Context().Value(UserIDKey).(posts.ID)
	return id
}

// SetTestUserID stores a user id in ctx for handler tests
func SetTestUserID(ctx context.Context, userID posts.ID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
