package pipeline

import (
	"fmt"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
)

// BuildGroups splits files into consecutive groups of groupSize, keeping
// the original order. Group k holds files[k*groupSize : (k+1)*groupSize].
func BuildGroups(files []models.SelectedFile, groupSize int) ([]models.ListingGroup, error) {
	n := len(files)
	if groupSize < 1 || n == 0 || n%groupSize != 0 {
		return nil, &InvalidGroupingError{Count: n, GroupSize: groupSize}
	}

	groups := make([]models.ListingGroup, 0, n/groupSize)
	for start := 0; start < n; start += groupSize {
		groups = append(groups, models.ListingGroup{
			Index: len(groups),
			Files: files[start : start+groupSize : start+groupSize],
		})
	}
	return groups, nil
}

// BuildTasks pairs every file of g with its pre-signed URL from the batch
// response slot and extracts its upload identifier. It fails with
// ErrMissingRecord when the slot has no record id and with
// ErrMissingUploadTarget when a file has no URL.
func BuildTasks(g models.ListingGroup, slot models.BatchSlot, found bool) ([]models.UploadTask, error) {
	if !found || slot.ID == "" {
		return nil, fmt.Errorf("group %d: %w", g.Number(), ErrMissingRecord)
	}

	tasks := make([]models.UploadTask, 0, len(g.Files))
	for _, f := range g.Files {
		u := slot.ImageURLs[f.Name]
		if u == "" {
			return nil, fmt.Errorf("group %d: %w: %s", g.Number(), ErrMissingUploadTarget, f.Name)
		}
		tasks = append(tasks, models.UploadTask{
			Filename:     f.Name,
			PresignedURL: u,
			File:         f,
			GroupIndex:   g.Index,
			RecordID:     slot.ID,
			UploadID:     ExtractUploadID(u, slot.ID),
		})
	}
	return tasks, nil
}
