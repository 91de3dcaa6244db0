// Package services contains application services for the cardkeeper client.
// This file defines the authentication service: login against the inventory
// API, the locally persisted session, and logout.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/client"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the session.
//   - Current: the stored session, or common.ErrNoSession /
//     common.ErrSessionExpired when the user has to sign in again.
//   - Logout: forget the stored session.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*session.Session, error)
	Current(ctx context.Context) (*session.Session, error)
	Logout(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  *session.Store
	now    func() time.Time
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, store: session.NewStore(db), now: time.Now}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*session.Session, error) {
	token, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	s, err := session.FromToken(token, username)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	if err := a.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

// Current returns the stored session if it is still usable. An expired
// session is kept on disk so that whoami can still name the user.
func (a *authService) Current(ctx context.Context) (*session.Session, error) {
	s, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := session.Require(s, a.now()); err != nil {
		return s, err
	}
	return s, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}
