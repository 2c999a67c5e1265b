package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"verimail/config"
)

// WorkspaceClaims scopes an API token to one workspace. Authentication
// flows (login, refresh, OAuth) live elsewhere; the verification service
// only needs to resolve a token to a workspace.
type WorkspaceClaims struct {
	WorkspaceID uint `json:"workspace_id"`
	jwt.RegisteredClaims
}

// GenerateWorkspaceToken issues an HS256 token for a workspace.
func GenerateWorkspaceToken(workspaceID uint, ttl time.Duration) (string, error) {
	claims := WorkspaceClaims{
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParseWorkspaceToken validates a token and returns its claims.
func ParseWorkspaceToken(tokenStr string) (*WorkspaceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &WorkspaceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*WorkspaceClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
