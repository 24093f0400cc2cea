// Package models defines the client-side data shared by the gateways and
// the flow controllers: the authenticated session, the profile record, the
// avatar asset and the controller state values.
package models

import "time"

// Session is the authenticated identity issued by the auth service.
// It is created once by the auth gateway and never mutated afterwards;
// controllers share it by pointer.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
