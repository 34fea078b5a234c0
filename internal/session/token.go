package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can read out of the access token without the
// server's secret: display-only hints for `techblok status` and the session
// expiry warning. Authorization never keys off these claims.
type TokenInfo struct {
	Username  string
	UserUID   string
	Role      string
	ExpiresAt time.Time
	HasExpiry bool
}

// InspectToken decodes the stored access token's claims without verifying
// the signature. The backend nests the profile under a "user" claim.
func InspectToken(token string) (TokenInfo, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, err
	}

	var info TokenInfo
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
		info.HasExpiry = true
	}
	if user, ok := claims["user"].(map[string]any); ok {
		if v, ok := user["username"].(string); ok {
			info.Username = v
		}
		if v, ok := user["user_uid"].(string); ok {
			info.UserUID = v
		}
		if v, ok := user["role"].(string); ok {
			info.Role = v
		}
	}
	return info, nil
}

// TokenInfo inspects the current session token.
func (s *Store) TokenInfo() (TokenInfo, bool) {
	tok := s.AccessToken()
	if tok == "" {
		return TokenInfo{}, false
	}
	info, err := InspectToken(tok)
	if err != nil {
		return TokenInfo{}, false
	}
	return info, true
}
