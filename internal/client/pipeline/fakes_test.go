package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/google/uuid"
)

type fakeRecord struct {
	id        string
	group     int
	processed []string
	patched   []string
	hasPatch  bool
}

type fileRef struct {
	record *fakeRecord
	name   string
	upload string
}

// fakeAPI simulates the inventory service: an upload through fakePutter
// makes a processed image appear on its record. Records report images in
// reverse upload order.
type fakeAPI struct {
	mu sync.Mutex

	owner string
	// urlFor builds the pre-signed URL handed out for one file.
	urlFor func(owner, record, upload, name string) string

	initErr    error
	omitGroups map[int]bool
	noURLFor   map[string]bool
	stuck      map[int]bool
	patchErr   error
	verifyOver map[int][]string

	records map[string]*fakeRecord
	byURL   map[string]fileRef

	initCalls  int
	getCalls   int
	patchCalls []string
	deletes    []string
	lastPatch  map[string]models.RecordPatch
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		owner: uuid.NewString(),
		urlFor: func(owner, record, upload, name string) string {
			return fmt.Sprintf("https://bucket.s3.amazonaws.com/%s/%s/%s/%s?X-Amz-Signature=abc", owner, record, upload, name)
		},
		records:   map[string]*fakeRecord{},
		byURL:     map[string]fileRef{},
		lastPatch: map[string]models.RecordPatch{},
	}
}

func (f *fakeAPI) InitiateBatch(ctx context.Context, s *session.Session, groups []models.ListingGroup, photos int) (map[string]models.BatchSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if f.initErr != nil {
		return nil, f.initErr
	}

	out := map[string]models.BatchSlot{}
	for _, g := range groups {
		rec := &fakeRecord{id: uuid.NewString(), group: g.Number()}
		f.records[rec.id] = rec
		if f.omitGroups[g.Number()] {
			continue
		}
		slot := models.BatchSlot{ID: rec.id, ImageURLs: map[string]string{}}
		for _, name := range g.Filenames() {
			if f.noURLFor[name] {
				continue
			}
			upload := uuid.NewString()
			u := f.urlFor(f.owner, rec.id, upload, name)
			slot.ImageURLs[name] = u
			f.byURL[u] = fileRef{record: rec, name: name, upload: upload}
		}
		out[g.Key()] = slot
	}
	return out, nil
}

func (f *fakeAPI) markUploaded(u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.byURL[u]
	if !ok {
		return errors.New("unknown url")
	}
	if f.stuck[ref.record.group] {
		return nil
	}
	img := fmt.Sprintf("https://tcgid.io/images/%s/%s/%s/master.png", f.owner, ref.record.id, ref.upload)
	ref.record.processed = append(ref.record.processed, img)
	return nil
}

func (f *fakeAPI) GetRecord(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	rec, ok := f.records[id]
	if !ok {
		return nil, errors.New("no such record")
	}

	images := slices.Clone(rec.processed)
	slices.Reverse(images)
	if rec.hasPatch {
		images = slices.Clone(rec.patched)
		if over, ok := f.verifyOver[rec.group]; ok {
			images = over
		}
	}
	return &models.InventoryRecord{ID: id, Images: images, UserID: f.owner}, nil
}

func (f *fakeAPI) PatchRecord(ctx context.Context, s *session.Session, id string, patch models.RecordPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchCalls = append(f.patchCalls, id)
	if f.patchErr != nil {
		return f.patchErr
	}
	rec := f.records[id]
	rec.patched = slices.Clone(patch.Images)
	rec.hasPatch = true
	f.lastPatch[id] = patch
	return nil
}

func (f *fakeAPI) DeleteRecord(ctx context.Context, s *session.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeAPI) recordOf(group int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.records {
		if r.group == group {
			return id
		}
	}
	return ""
}

func (f *fakeAPI) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deletes)
}

// fakePutter reads the body and forwards the URL to the fake service.
type fakePutter struct {
	api  *fakeAPI
	fail map[string]bool

	mu    sync.Mutex
	types map[string]string
}

func (p *fakePutter) Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	ref := p.api.byURLRef(url)

	p.mu.Lock()
	if p.types == nil {
		p.types = map[string]string{}
	}
	p.types[ref.name] = contentType
	p.mu.Unlock()

	if p.fail[ref.name] {
		return errors.New("403 Forbidden")
	}
	if int64(len(b)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(b), size)
	}
	return p.api.markUploaded(url)
}

func (f *fakeAPI) byURLRef(u string) fileRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byURL[u]
}

func memFile(name, content string) models.SelectedFile {
	return models.NewSelectedFile(name, int64(len(content)), "", func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(content))), nil
	})
}

func memFiles(n int) []models.SelectedFile {
	files := make([]models.SelectedFile, n)
	for i := range files {
		files[i] = memFile(fmt.Sprintf("card%02d.jpg", i+1), fmt.Sprintf("content-%d", i+1))
	}
	return files
}

type recordingObserver struct {
	mu       sync.Mutex
	phases   []Phase
	messages []string
	progress []int
	total    int
}

func (o *recordingObserver) Phase(p Phase, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, p)
	if msg != "" {
		o.messages = append(o.messages, msg)
	}
}

func (o *recordingObserver) Uploaded(done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, done)
	o.total = total
}
