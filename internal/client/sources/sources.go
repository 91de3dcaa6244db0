// Package sources turns user input (explicit paths, a directory, or a zip
// archive) into the ordered list of images a batch is built from.
package sources

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/filex"
)

var (
	ErrNoImages      = errors.New("no images found")
	ErrNotImage      = errors.New("not an image file")
	ErrDuplicateName = errors.New("duplicate file name")
)

// Source yields an ordered list of images. Close releases whatever backs
// the file contents; files must not be opened after Close.
type Source interface {
	Files() []models.SelectedFile
	Close() error
}

type fileList struct {
	files []models.SelectedFile
}

func (s *fileList) Files() []models.SelectedFile { return s.files }
func (s *fileList) Close() error { return nil }

// Files reads the given paths in the order given.
func Files(paths ...string) (Source, error) {
	files := make([]models.SelectedFile, 0, len(paths))
	for _, p := range paths {
		if !models.IsImageName(p) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotImage)
		}
		f, err := localFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := checkFiles(files); err != nil {
		return nil, err
	}
	return &fileList{files: files}, nil
}

// Dir reads the image files directly inside dir, sorted by name.
// Subdirectories and non-image files are skipped.
func Dir(dir string) (Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	files := make([]models.SelectedFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !models.IsImageName(e.Name()) {
			continue
		}
		f, err := localFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := checkFiles(files); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return &fileList{files: files}, nil
}

// Open picks the adapter for paths: a single .zip becomes Zip, a single
// directory becomes Dir, anything else is read as Files.
func Open(paths ...string) (Source, error) {
	if len(paths) == 0 {
		return nil, ErrNoImages
	}
	if len(paths) == 1 {
		switch p := paths[0]; {
		case strings.EqualFold(filepath.Ext(p), ".zip"):
			return Zip(p)
		case filex.IsDir(p):
			return Dir(p)
		}
	}
	return Files(paths...)
}

func localFile(path string) (models.SelectedFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return models.SelectedFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return models.SelectedFile{}, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	open := func() (io.ReadCloser, error) { return os.Open(path) }
	return models.NewSelectedFile(filepath.Base(path), fi.Size(), "", open), nil
}

// checkFiles rejects empty selections and repeated names, which the batch
// API cannot tell apart.
func checkFiles(files []models.SelectedFile) error {
	if len(files) == 0 {
		return ErrNoImages
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
