// Package auth issues and verifies the JWTs that identify curators.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the curator id alongside the registered JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	CuratorID string `json:"curator_id"`
}

// GenerateToken signs a token (HS256) identifying curatorID, valid for the
// given duration.
func GenerateToken(secret, curatorID string, validity time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		CuratorID: curatorID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// CuratorIDFromToken verifies tokenString and returns the curator id it
// identifies.
func CuratorIDFromToken(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.CuratorID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.CuratorID, nil
}
