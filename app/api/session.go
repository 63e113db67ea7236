package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the result of a successful login. Token is empty when the
// server does not issue one.
type Session struct {
	Login     string
	UserID    string
	Token     string
	Subject   string
	ExpiresAt time.Time
	LoggedIn  time.Time
}

// newSession reads the sub and exp claims of token without verifying the
// signature; the client has no key and only uses them for display and expiry.
func newSession(login, userID, token string, now time.Time) *Session {
	s := &Session{Login: login, UserID: userID, Token: token, LoggedIn: now}
	if token == "" {
		return s
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return s
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s
}

// Expired reports whether the token has passed its exp claim. Sessions
// without a token, or tokens without exp, never expire.
func (s *Session) Expired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
