package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseClaims decodes the access token payload. The signature is not
// checked; the result is informational only.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNoToken
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("decoding access token: %w", err)
	}

	var claims Claims
	if v, ok := mapClaims["user_id"]; ok && v != nil {
		switch id := v.(type) {
		case float64:
			claims.UserID = fmt.Sprintf("%.0f", id)
		default:
			claims.UserID = fmt.Sprint(id)
		}
	}
	if v, ok := mapClaims["token_type"].(string); ok {
		claims.TokenType = v
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("decoding token expiry: %w", err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Claims decodes the current access token.
func (s *Store) Claims() (Claims, error) {
	return ParseClaims(s.AccessToken())
}
