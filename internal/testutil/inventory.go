// Package testutil provides an in-process fake of the inventory service
// for tests: REST API, S3-style object storage with real pre-signed URLs,
// asynchronous image processing and the aspects CDN.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Bucket   = "user-uploads"
	Username = "collector"
	Password = "secret"
)

var signingKey = []byte("fake-inventory-signing-key")

type claims struct {
	jwt.RegisteredClaims
	UserID string
}

// Record is the fake's view of an inventory record.
type Record struct {
	ID        string
	Group     int
	Images    []string
	Data      map[string]string
	Deleted   bool
	processed []string
	patched   bool
}

type object struct {
	recordID    string
	uploadID    string
	filename    string
	contentType string
	body        []byte
}

// FakeInventory is safe for concurrent use. Exported knobs must be set
// before the code under test runs.
type FakeInventory struct {
	Server *httptest.Server
	Owner  string

	// ProcessingDelay is how long an uploaded image takes to show up on
	// its record.
	ProcessingDelay time.Duration
	// StuckGroups never finish processing (1-based group numbers).
	StuckGroups map[int]bool
	// RejectUploads fails storage PUTs of these file names with 403.
	RejectUploads map[string]bool
	// OmitGroups are created but left out of the batch response.
	OmitGroups map[int]bool
	// PatchStatus, when non-zero, is returned for every PATCH.
	PatchStatus int
	// Aspects maps category ids to CDN payloads.
	Aspects map[string]string

	presign *s3.PresignClient

	mu       sync.Mutex
	records  map[string]*Record
	objects  map[string]*object
	pending  map[string]*object
	deletes  []string
	patches  []string
	jobs     []string
	requests int
	timers   []*time.Timer
}

// NewFakeInventory starts the fake and stops it when t ends.
func NewFakeInventory(t testing.TB) *FakeInventory {
	t.Helper()

	f := &FakeInventory{
		Owner:           uuid.NewString(),
		ProcessingDelay: 10 * time.Millisecond,
		StuckGroups:     map[int]bool{},
		RejectUploads:   map[string]bool{},
		OmitGroups:      map[int]bool{},
		Aspects:         map[string]string{},
		records:         map[string]*Record{},
		objects:         map[string]*object{},
		pending:         map[string]*object{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", f.handleLogin)
	mux.HandleFunc("POST /api/v2/inventory/batch", f.auth(f.handleBatch))
	mux.HandleFunc("GET /api/v2/inventory/job", f.auth(f.handleJob))
	mux.HandleFunc("GET /api/v2/inventory/{id}", f.auth(f.handleGet))
	mux.HandleFunc("PATCH /api/v2/inventory/{id}", f.auth(f.handlePatch))
	mux.HandleFunc("DELETE /api/v2/inventory/{id}", f.auth(f.handleDelete))
	mux.HandleFunc("PUT /api/v2/inventory/{id}", f.auth(f.handleAddImage))
	mux.HandleFunc("PUT /"+Bucket+"/{key...}", f.handleStorage)
	mux.HandleFunc("GET /aspects/{file}", f.handleAspects)

	f.Server = httptest.NewServer(mux)

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIDFAKEINVENTORY", "fake-secret", "")),
	)
	if err != nil {
		f.Server.Close()
		t.Fatalf("aws config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(f.Server.URL)
		o.UsePathStyle = true
	})
	f.presign = s3.NewPresignClient(client)

	t.Cleanup(func() {
		f.mu.Lock()
		for _, tm := range f.timers {
			tm.Stop()
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

// URL is the API base URL.
func (f *FakeInventory) URL() string { return f.Server.URL }

// ImageBaseURL is where processed images live.
func (f *FakeInventory) ImageBaseURL() string { return f.Server.URL + "/images" }

// AspectsBaseURL is the aspects CDN root.
func (f *FakeInventory) AspectsBaseURL() string { return f.Server.URL + "/aspects" }

// Token mints a valid bearer token for Owner.
func (f *FakeInventory) Token(ttl time.Duration) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		UserID: f.Owner,
	})
	s, err := tok.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return s
}

// Record returns a copy of the record.
func (f *FakeInventory) Record(id string) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return Record{}, false
	}
	cp := *r
	cp.Images = slices.Clone(r.Images)
	return cp, true
}

// RecordForGroup returns the id of the record created for a 1-based group.
func (f *FakeInventory) RecordForGroup(group int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.records {
		if r.Group == group {
			return id
		}
	}
	return ""
}

// SeedRecord adds a record with the given images and returns its id.
func (f *FakeInventory) SeedRecord(images ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.records[id] = &Record{ID: id, Images: slices.Clone(images), processed: slices.Clone(images)}
	return id
}

func (f *FakeInventory) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deletes)
}

func (f *FakeInventory) Patches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.patches)
}

// Jobs lists the file names of archives uploaded through job URLs.
func (f *FakeInventory) Jobs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.jobs)
}

// Object returns the stored bytes and content type of an uploaded file.
func (f *FakeInventory) Object(filename string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.objects {
		if o.filename == filename {
			return o.body, o.contentType, true
		}
	}
	return nil, "", false
}

// UploadID returns the storage upload id under which filename arrived.
func (f *FakeInventory) UploadID(filename string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.objects {
		if o.filename == filename {
			return o.uploadID
		}
	}
	return ""
}

// Requests counts authenticated API calls.
func (f *FakeInventory) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func writeJSON(w http.ResponseWriter, status int, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "data": data})
}

func (f *FakeInventory) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, false, "missing token")
			return
		}
		c := &claims{}
		_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) { return signingKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || c.UserID != f.Owner {
			writeJSON(w, http.StatusUnauthorized, false, "invalid token")
			return
		}
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		next(w, r)
	}
}

func (f *FakeInventory) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, false, "bad body")
		return
	}
	if body.Username != Username || body.Password != Password {
		writeJSON(w, http.StatusUnauthorized, false, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, true, map[string]string{"token": f.Token(time.Hour)})
}

func (f *FakeInventory) presignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := f.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (f *FakeInventory) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, false, "bad body")
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if count != len(body) {
		writeJSON(w, http.StatusBadRequest, false, "count does not match body")
		return
	}

	out := map[string]any{}
	for key, names := range body {
		group, err := strconv.Atoi(key)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, false, "bad group key")
			return
		}

		rec := &Record{ID: uuid.NewString(), Group: group}
		urls := map[string]string{}
		for _, name := range names {
			upload := uuid.NewString()
			objKey := fmt.Sprintf("%s/%s/%s/%s", f.Owner, rec.ID, upload, name)
			u, err := f.presignPut(r.Context(), objKey, contentTypeOf(name))
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, false, err.Error())
				return
			}
			urls[name] = u

			f.mu.Lock()
			f.pending[objKey] = &object{recordID: rec.ID, uploadID: upload, filename: name}
			f.mu.Unlock()
		}

		f.mu.Lock()
		f.records[rec.ID] = rec
		f.mu.Unlock()

		if !f.OmitGroups[group] {
			out[key] = map[string]any{"id": rec.ID, "image_urls": urls}
		}
	}
	writeJSON(w, http.StatusOK, true, out)
}

func (f *FakeInventory) handleAddImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.URL.Query().Get("filename")

	f.mu.Lock()
	rec, ok := f.records[id]
	f.mu.Unlock()
	if !ok || rec.Deleted {
		writeJSON(w, http.StatusNotFound, false, "not found")
		return
	}

	upload := uuid.NewString()
	objKey := fmt.Sprintf("%s/%s/%s/%s", f.Owner, id, upload, name)
	ct := contentTypeOf(name)
	u, err := f.presignPut(r.Context(), objKey, ct)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, false, err.Error())
		return
	}

	f.mu.Lock()
	f.pending[objKey] = &object{recordID: id, uploadID: upload, filename: name}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, true, map[string]string{"presigned_url": u, "content_type": ct})
}

func (f *FakeInventory) handleJob(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, false, "filename required")
		return
	}
	objKey := fmt.Sprintf("jobs/%s/%s/%s", f.Owner, uuid.NewString(), name)
	u, err := f.presignPut(r.Context(), objKey, "application/zip")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, false, err.Error())
		return
	}

	f.mu.Lock()
	f.pending[objKey] = &object{filename: name}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, true, map[string]string{"upload_url": u})
}

func (f *FakeInventory) handleStorage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if r.URL.Query().Get("X-Amz-Signature") == "" {
		http.Error(w, "AccessDenied", http.StatusForbidden)
		return
	}

	f.mu.Lock()
	obj, ok := f.pending[key]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "NoSuchUpload", http.StatusForbidden)
		return
	}
	if f.RejectUploads[obj.filename] {
		http.Error(w, "SignatureDoesNotMatch", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, key)
	obj.body = body
	obj.contentType = r.Header.Get("Content-Type")
	f.objects[key] = obj

	if obj.recordID == "" {
		f.jobs = append(f.jobs, obj.filename)
		w.WriteHeader(http.StatusOK)
		return
	}

	rec := f.records[obj.recordID]
	if rec != nil && !f.StuckGroups[rec.Group] {
		img := fmt.Sprintf("%s/%s/%s/%s/master.png", f.ImageBaseURL(), f.Owner, rec.ID, obj.uploadID)
		f.timers = append(f.timers, time.AfterFunc(f.ProcessingDelay, func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			rec.processed = append(rec.processed, img)
			if !rec.patched {
				rec.Images = reversed(rec.processed)
			} else {
				rec.Images = append(rec.Images, img)
			}
		}))
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakeInventory) handleGet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	rec, ok := f.records[r.PathValue("id")]
	var data map[string]any
	if ok {
		images := slices.Clone(rec.Images)
		if images == nil {
			images = []string{}
		}
		data = map[string]any{
			"id":             rec.ID,
			"images":         images,
			"inventory_data": rec.Data,
			"user_id":        f.Owner,
		}
	}
	deleted := ok && rec.Deleted
	f.mu.Unlock()

	if !ok || deleted {
		writeJSON(w, http.StatusNotFound, false, "not found")
		return
	}
	writeJSON(w, http.StatusOK, true, data)
}

func (f *FakeInventory) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Images []string          `json:"images"`
		Data   map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, false, "bad body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, id)

	if f.PatchStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.PatchStatus)
		_, _ = io.WriteString(w, `{"success":false,"data":"patch rejected"}`)
		return
	}

	rec, ok := f.records[id]
	if !ok || rec.Deleted {
		writeJSON(w, http.StatusNotFound, false, "not found")
		return
	}
	if body.Images != nil {
		rec.Images = slices.Clone(body.Images)
		rec.patched = true
	}
	if body.Data != nil {
		if rec.Data == nil {
			rec.Data = map[string]string{}
		}
		for k, v := range body.Data {
			rec.Data[k] = v
		}
	}
	writeJSON(w, http.StatusOK, true, nil)
}

func (f *FakeInventory) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	rec, ok := f.records[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, false, "not found")
		return
	}
	rec.Deleted = true
	writeJSON(w, http.StatusOK, true, nil)
}

func (f *FakeInventory) handleAspects(w http.ResponseWriter, r *http.Request) {
	cat, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	payload, found := f.Aspects[cat]
	if !ok || !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, payload)
}

func reversed(xs []string) []string {
	out := slices.Clone(xs)
	slices.Reverse(out)
	return out
}

func contentTypeOf(name string) string {
	switch strings.ToLower(name[strings.LastIndex(name, ".")+1:]) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "zip":
		return "application/zip"
	default:
		return "image/jpeg"
	}
}
