package auth

import (
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// Gate guards owner-scoped operations: it turns a bearer token into the
// principal id it was issued for.
type Gate struct {
	secret []byte
}

func NewGate(secretKey string) *Gate {
	return &Gate{secret: []byte(secretKey)}
}

// Authorize returns the principal id embedded in token.
// An empty token is common.ErrMissingToken; a bad signature or an expired
// token is common.ErrInvalidToken (or its ErrTokenExpired refinement).
func (g *Gate) Authorize(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", common.ErrMissingToken
	}
	return GetUserIDFromToken(token, g.secret)
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>". Anything else yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
