package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

// AccessTokenTTL is how long issued tokens stay valid.
const AccessTokenTTL = 30 * time.Minute

// Claims carried in access tokens. The user id and admin flag travel in the
// token so the middleware can build the caller identity without a database
// round trip.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int64 `json:"uid"`
	IsAdmin bool  `json:"adm"`
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the shared signing secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    AccessTokenTTL,
	}
}

// Issue creates a signed access token for the user.
func (tm *TokenManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token string and returns its claims.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm to prevent confusion attacks
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, &domain.UnauthorizedError{Message: "Invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return nil, &domain.UnauthorizedError{Message: "Invalid token claims"}
	}
	return claims, nil
}
