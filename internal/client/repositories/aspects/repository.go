// Package aspects caches category aspect definitions in the local database.
package aspects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/dbx"
)

// Entry is a cached aspects payload for one category.
type Entry struct {
	CategoryID string
	Payload    []byte
	FetchedAt  time.Time
}

type Repository interface {
	Get(ctx context.Context, categoryID string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, categoryID string) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, categoryID string) (*Entry, error) {
	var (
		payload []byte
		fetched int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM aspects_cache WHERE category_id = ?`, categoryID,
	).Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aspects[%s]: %w", categoryID, err)
	}
	return &Entry{CategoryID: categoryID, Payload: payload, FetchedAt: time.Unix(fetched, 0)}, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, e *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO aspects_cache (category_id, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(category_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, e.CategoryID, e.Payload, e.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to put aspects[%s]: %w", e.CategoryID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, categoryID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM aspects_cache WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete aspects[%s]: %w", categoryID, err)
	}
	return nil
}
