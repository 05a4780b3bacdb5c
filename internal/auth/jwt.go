package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bybo/bybo-be/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalid covers missing, malformed, forged, expired and revoked tokens.
var ErrTokenInvalid = errors.New("invalid token")

// Claims defines the JWT claims structure.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the verified caller behind a token.
type Identity struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager signs and verifies session tokens with a server-held secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. ttl bounds token lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for a user.
func (m *TokenManager) Issue(user models.User) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token string and checks its signature, algorithm and expiry.
func (m *TokenManager) Verify(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	return &Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// contextKey is the type for request-scoped auth values.
type contextKey string

// IdentityKey is the context key for the verified identity.
const IdentityKey = contextKey("identity")

// tokenKey holds the raw token so handlers can pass it to the services.
const tokenKey = contextKey("token")

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the "token" cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if tokenStr, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(tokenStr)
		}
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// WithIdentity stores a verified identity and its raw token on the context.
func WithIdentity(ctx context.Context, id *Identity, token string) context.Context {
	ctx = context.WithValue(ctx, IdentityKey, id)
	return context.WithValue(ctx, tokenKey, token)
}

// IdentityFromContext returns the identity placed by the middleware, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*Identity)
	return id, ok && id != nil
}

// TokenFromContext returns the raw token placed by the middleware.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}

// Verifier checks a raw token, including any revocation state.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// Middleware creates a middleware for protecting routes.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				writeUnauthorized(w, "Missing auth token")
				return
			}

			id, err := v.VerifyToken(r.Context(), tokenStr)
			if err != nil {
				writeUnauthorized(w, "Invalid auth token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id, tokenStr)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"code":"UNAUTHORIZED","message":%q}`+"\n", msg)
}
