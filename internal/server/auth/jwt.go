// Package auth issues and verifies the HS256 tokens handed out by the dev
// relay for both the bridge and the user's server.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/shareify/internal/common"
)

// Claims carries the registered claims plus the login the token was issued
// to and the realm ("bridge" or "server") it is valid for.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Realm  string `json:"realm"`
}

// Realms.
const (
	RealmBridge = "bridge"
	RealmServer = "server"
)

func GenerateToken(userID, realm string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
		Realm:  realm,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns the user it was issued
// to. Tokens from another realm are rejected. Expired tokens yield
// common.ErrTokenExpired, every other failure common.ErrInvalidToken.
func GetUserIDFromToken(tokenString, realm string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Realm != realm {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
