package identity

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

// TokenManager issues and validates caller-facing session tokens.
// The token is a signed wrapper around the session id: possession alone is
// not enough, the referenced session must still exist in the store.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the session lifetime tokens are issued with.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Claims describes the session token payload.
type Claims struct {
	SessionID   string             `json:"sid"`
	Environment domain.Environment `json:"env"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token referencing the given session.
func (tm *TokenManager) GenerateToken(sessionID string, env domain.Environment, expiresAt time.Time) (string, error) {
	claims := &Claims{
		SessionID:   sessionID,
		Environment: env,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
