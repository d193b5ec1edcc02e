// Package session holds the operator's identity for the lifetime of the
// console process, derived from the access token the backend issued.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// ErrStale reports a missing or expired session. Operations that need an
// operator identity short-circuit on it instead of hitting the backend.
var ErrStale = errors.New("session: token missing or expired")

// Session is the identity carried in the access token. The console does not
// verify the signature; the backend does that on every request. Here the
// claims only label optimistic messages and notifications.
type Session struct {
	Token      string
	OperatorID string
	Name       string
	Email      string
	ExpiresAt  time.Time

	now func() time.Time
}

// FromToken decodes the operator claims out of an access token.
func FromToken(token string) (*Session, error) {
	if token == "" {
		return nil, ErrStale
	}

	claims := jwt.MapClaims{}
	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("session: malformed token: %w", err)
	}

	s := &Session{Token: token, now: time.Now}
	if id, ok := claims["id"].(string); ok {
		s.OperatorID = id
	}
	if name, ok := claims["name"].(string); ok {
		s.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if exp, ok := claims["exp"].(float64); ok {
		s.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return s, nil
}

// Valid reports whether the session can still back requests. A token without
// an exp claim is treated as non-expiring.
func (s *Session) Valid() bool {
	if s == nil || s.Token == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return s.now().Before(s.ExpiresAt)
}
