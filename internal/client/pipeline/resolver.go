package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
)

// Resolver puts processed image URLs back into upload order. The
// processing service returns images in no particular order; each URL
// carries the upload identifier of the file it came from.
type Resolver struct {
	ImageBaseURL string
	Log          logging.Logger
}

// Resolve returns one URL per file of g in file order. For a file whose
// identifier is unknown or unmatched it synthesizes
// {ImageBaseURL}/{owner}/{record}/{id}/master.png when owner is known and
// leaves the slot out otherwise. Fewer URLs than files, or the same URL in
// two slots, yields ErrOrderingFailed along with the list.
func (r Resolver) Resolve(ctx context.Context, g models.ListingGroup, tasks map[string]models.UploadTask, processed []string, recordID, owner string) ([]string, error) {
	ordered := make([]string, 0, len(g.Files))

	for _, f := range g.Files {
		uploadID := tasks[f.Name].UploadID

		if uploadID != "" {
			if u, ok := findByUploadID(processed, uploadID); ok {
				ordered = append(ordered, u)
				continue
			}
		}

		if owner == "" {
			r.Log.Warn(ctx, "cannot place image, owner unknown",
				"group", g.Number(), "record_id", recordID, "file", f.Name, "upload_id", uploadID)
			continue
		}

		u := r.synthesize(owner, recordID, uploadID)
		r.Log.Warn(ctx, "image not found in processed set, using constructed url",
			"group", g.Number(), "record_id", recordID, "file", f.Name, "upload_id", uploadID, "url", u)
		ordered = append(ordered, u)
	}

	if len(ordered) != len(g.Files) {
		return ordered, fmt.Errorf("%w: %d of %d", ErrOrderingFailed, len(ordered), len(g.Files))
	}
	if u, ok := firstDuplicate(ordered); ok {
		return ordered, fmt.Errorf("%w: %s placed twice", ErrOrderingFailed, u)
	}
	return ordered, nil
}

func (r Resolver) synthesize(owner, recordID, uploadID string) string {
	if uploadID == "" {
		uploadID = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s/%s/master.png", strings.TrimRight(r.ImageBaseURL, "/"), owner, recordID, uploadID)
}

func findByUploadID(processed []string, uploadID string) (string, bool) {
	needle := "/" + uploadID + "/"
	for _, u := range processed {
		if u != "" && strings.Contains(u, needle) {
			return u, true
		}
	}
	return "", false
}

func firstDuplicate(urls []string) (string, bool) {
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			return u, true
		}
		seen[u] = struct{}{}
	}
	return "", false
}
