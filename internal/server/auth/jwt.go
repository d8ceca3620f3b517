// Package auth resolves who is calling and decides whether they may see the
// admin panel.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the signed-in user's id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// GenerateToken signs an HS256 access token for userID that expires after ttl.
func GenerateToken(userID string, secretKey []byte, ttl time.Duration) (string, error) {
	issued := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// GetUserIDFromToken validates an HS256 token. Expired tokens yield
// common.ErrTokenExpired; anything else wrong yields common.ErrInvalidToken.
func GetUserIDFromToken(raw string, secretKey []byte) (string, error) {
	var claims Claims
	keyFunc := func(*jwt.Token) (any, error) { return secretKey, nil }

	parsed, err := jwt.ParseWithClaims(raw, &claims, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", common.ErrTokenExpired
	case err != nil:
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	case !parsed.Valid || claims.UserID == "":
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
