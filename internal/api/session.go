package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the client knows about the signed-in user, read from the
// bearer token. The signature is not verified here; services enforce access.
type Session struct {
	UserID    string
	Role      Role
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ParseSession extracts the sub, role and exp claims from a JWT.
func ParseSession(token string) (Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("parsing token: %w", err)
	}

	var s Session
	if sub, err := claims.GetSubject(); err == nil {
		s.UserID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if r, ok := claims["role"].(string); ok {
		s.Role = Role(strings.ToLower(r))
	}
	if s.UserID == "" {
		if id, ok := claims["userId"].(string); ok {
			s.UserID = id
		}
	}
	return s, nil
}
