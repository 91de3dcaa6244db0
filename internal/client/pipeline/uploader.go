package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Putter sends bytes to a pre-signed URL. netx.Uploader implements it.
type Putter interface {
	Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error
}

// Uploader pushes files to their pre-signed targets concurrently.
type Uploader struct {
	put   Putter
	limit int
	log   logging.Logger
}

// NewUploader returns an Uploader running at most limit transfers at a
// time; limit < 1 means no limit.
func NewUploader(put Putter, limit int, log logging.Logger) *Uploader {
	return &Uploader{put: put, limit: limit, log: log}
}

// UploadAll uploads every task and waits for all of them to settle. One
// failure never cancels the others. Results are in task order, and
// progress is advanced once per task whatever its outcome.
func (u *Uploader) UploadAll(ctx context.Context, tasks []models.UploadTask, progress *Progress) []models.UploadResult {
	results := make([]models.UploadResult, len(tasks))

	var g errgroup.Group
	if u.limit > 0 {
		g.SetLimit(u.limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			err := u.uploadOne(ctx, task)
			results[i] = models.UploadResult{Task: task, Err: err}
			progress.Inc()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (u *Uploader) uploadOne(ctx context.Context, task models.UploadTask) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, task.Filename, err)
	}

	rc, err := task.File.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, task.Filename, err)
	}
	defer rc.Close()

	contentType := task.File.MimeType
	if contentType == "" {
		contentType = models.DefaultImageType
	}

	if err := u.put.Put(ctx, task.PresignedURL, rc, task.File.Size, contentType); err != nil {
		u.log.Warn(ctx, "upload failed", "group", task.GroupIndex+1, "file", task.Filename, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrUploadFailed, task.Filename, err)
	}

	u.log.Debug(ctx, "uploaded", "group", task.GroupIndex+1, "file", task.Filename, "upload_id", task.UploadID)
	return nil
}
