// Package session holds the signed-in user's credential and its expiry.
//
// A Session is an explicit value handed to every inventory API call. Expiry
// is a pure function of the Session and a clock reading; nothing here reads
// ambient state.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed session token")

// Session is a bearer credential plus what the client knows about its owner.
type Session struct {
	Token     string
	Username  string
	UserID    string
	ExpiresAt time.Time
}

// claims mirrors what the inventory service puts in its tokens. UserID is
// optional; sub is used when it is absent.
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"UserID,omitempty"`
}

// FromToken builds a Session from a bearer token. The signature is not
// verified: the client only needs exp and the owner id, and the server
// remains the authority on validity.
func FromToken(token, username string) (*Session, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}

	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	s := &Session{Token: token, Username: username, UserID: c.UserID}
	if s.UserID == "" {
		s.UserID = c.Subject
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the session is no longer usable at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Require returns common.ErrNoSession when s is missing and
// common.ErrSessionExpired when it is past its expiry.
func Require(s *Session, now time.Time) error {
	if s == nil || s.Token == "" {
		return common.ErrNoSession
	}
	if s.Expired(now) {
		return common.ErrSessionExpired
	}
	return nil
}
