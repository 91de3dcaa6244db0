package models

import "strconv"

// ListingGroup is a fixed-size ordered run of files that becomes one
// inventory record. Index is 0-based; the remote API and user-facing
// messages number groups from 1.
type ListingGroup struct {
	Index int
	Files []SelectedFile
}

// Number is the 1-based group number used on the wire.
func (g ListingGroup) Number() int {
	return g.Index + 1
}

// Key is Number formatted as the JSON object key of batch requests.
func (g ListingGroup) Key() string {
	return strconv.Itoa(g.Number())
}

// Filenames lists the group's files in order.
func (g ListingGroup) Filenames() []string {
	names := make([]string, len(g.Files))
	for i, f := range g.Files {
		names[i] = f.Name
	}
	return names
}

// UploadTask binds one file to its pre-signed target.
// UploadID is empty when no identifier could be extracted from PresignedURL.
type UploadTask struct {
	Filename     string
	PresignedURL string
	File         SelectedFile
	GroupIndex   int
	RecordID     string
	UploadID     string
}

// UploadResult is the settled state of one UploadTask.
type UploadResult struct {
	Task UploadTask
	Err  error
}
