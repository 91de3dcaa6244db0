package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cardkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/dbx"
)

const (
	keyPrefix   = "session."
	keyToken    = keyPrefix + "token"
	keyUsername = keyPrefix + "username"
)

// Store keeps the current session in the local metadata table so that a
// login survives restarts of the client.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save replaces the stored session.
func (st *Store) Save(ctx context.Context, s *Session) error {
	return dbx.WithTx(ctx, st.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyToken, []byte(s.Token)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUsername, []byte(s.Username))
	})
}

// Load restores the stored session. It returns common.ErrNoSession when
// nobody is signed in. Expiry is not checked here; see Require.
func (st *Store) Load(ctx context.Context) (*Session, error) {
	repo := metadata.NewSQLiteRepository(st.db)

	token, err := repo.Get(ctx, keyToken)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	username, err := repo.Get(ctx, keyUsername)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	s, err := FromToken(string(token), string(username))
	if err != nil {
		return nil, fmt.Errorf("stored session: %w", err)
	}
	return s, nil
}

// Clear removes the stored session.
func (st *Store) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(st.db).DeletePrefix(ctx, keyPrefix)
}
