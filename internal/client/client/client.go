package client

import (
	"context"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
)

// Client is the inventory service API as used by the CLI. Every call except
// Login carries the session's bearer token.
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	InitiateBatch(ctx context.Context, s *session.Session, groups []models.ListingGroup, photos int) (map[string]models.BatchSlot, error)
	GetRecord(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error)
	PatchRecord(ctx context.Context, s *session.Session, id string, patch models.RecordPatch) error
	DeleteRecord(ctx context.Context, s *session.Session, id string) error
	RequestImageUpload(ctx context.Context, s *session.Session, id, filename string) (*models.UploadTarget, error)
	CreateArchiveJob(ctx context.Context, s *session.Session, filename string, photos int) (*models.ArchiveJob, error)
}
