package sources

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
)

type zipSource struct {
	rc    *zip.ReadCloser
	files []models.SelectedFile
}

func (s *zipSource) Files() []models.SelectedFile { return s.files }
func (s *zipSource) Close() error { return s.rc.Close() }

// Zip reads the image entries of a zip archive, sorted by entry path.
// Entries are decompressed on Open, so the archive stays open until Close.
// macOS resource forks and hidden entries are skipped.
func Zip(archive string) (Source, error) {
	rc, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", archive, err)
	}

	entries := make([]*zip.File, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) || !models.IsImageName(f.Name) {
			continue
		}
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	files := make([]models.SelectedFile, 0, len(entries))
	for _, e := range entries {
		open := func() (io.ReadCloser, error) { return e.Open() }
		files = append(files, models.NewSelectedFile(path.Base(e.Name), int64(e.UncompressedSize64), "", open))
	}

	if err := checkFiles(files); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%s: %w", archive, err)
	}
	return &zipSource{rc: rc, files: files}, nil
}

func skipEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return isHidden(path.Base(name))
}
