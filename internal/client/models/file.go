// Package models defines the client-side data model of the inventory
// pipeline: selected local images, listing groups, upload tasks, remote
// inventory records and per-group outcomes.
package models

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// DefaultImageType is assumed when an image's type cannot be derived.
const DefaultImageType = "image/jpeg"

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".heic": "image/heic",
}

// SelectedFile is a local image chosen for upload. The content is opened
// lazily so that a batch never holds every image in memory.
type SelectedFile struct {
	Name     string
	Size     int64
	MimeType string

	open func() (io.ReadCloser, error)
}

// NewSelectedFile describes a file whose bytes are produced by open.
// An empty mimeType is derived from the name.
func NewSelectedFile(name string, size int64, mimeType string, open func() (io.ReadCloser, error)) SelectedFile {
	if mimeType == "" {
		mimeType = ImageContentType(name)
	}
	return SelectedFile{Name: name, Size: size, MimeType: mimeType, open: open}
}

// Open returns a fresh reader over the file content.
func (f SelectedFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, ErrNoContent
	}
	return f.open()
}

// IsImageName reports whether name carries a known image extension.
func IsImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ImageContentType maps a file name to its image MIME type.
func ImageContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := imageExtensions[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return DefaultImageType
}
