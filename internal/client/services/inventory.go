package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/client/client"
	"github.com/dmitrijs2005/cardkeeper/internal/client/config"
	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/pipeline"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/client/sources"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
)

// InventoryService defines the inventory operations the CLI exposes.
//
// Every method takes the caller's session and fails with
// common.ErrNoSession / common.ErrSessionExpired before touching the
// network when it is not usable.
type InventoryService interface {
	// CreateBatch builds records from local images, PhotosPerListing
	// images per record. Per-group failures are in the report.
	CreateBatch(ctx context.Context, s *session.Session, req BatchRequest) (pipeline.Report, error)
	// SubmitArchiveJob hands a zip archive to the server, which does the
	// grouping itself.
	SubmitArchiveJob(ctx context.Context, s *session.Session, zipPath string, photos int) error
	Show(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error)
	// AppendImages adds files to an existing record one at a time and
	// waits for each to be processed. Per-file failures are in the results.
	AppendImages(ctx context.Context, s *session.Session, id string, files []models.SelectedFile, progress func(done, total int)) ([]AppendResult, error)
	// Save patches a record's data and images. With a category, data is
	// validated against its aspects first.
	Save(ctx context.Context, s *session.Session, id string, req SaveRequest) error
	Delete(ctx context.Context, s *session.Session, id string) error
}

type BatchRequest struct {
	Paths    []string
	Photos   int
	Data     map[string]string
	Observer pipeline.Observer
}

type SaveRequest struct {
	Data map[string]string
	// Images replaces the record's images when non-nil; sized renditions
	// are stored as their master URL.
	Images   []string
	Category string
}

// AppendResult is the settled state of one appended file.
type AppendResult struct {
	Filename string
	Err      error
}

type inventoryService struct {
	client   client.Client
	put      pipeline.Putter
	aspects  *aspects.Service
	pipeline *pipeline.Pipeline
	poller   pipeline.Poller
	log      logging.Logger
	now      func() time.Time
}

// NewInventoryService wires the batch pipeline and the edit operations to
// the API client and the object storage uploader.
func NewInventoryService(c client.Client, put pipeline.Putter, asp *aspects.Service, cfg *config.Config, log logging.Logger) InventoryService {
	p := pipeline.New(c, put, log, pipeline.Options{
		PollInterval:       cfg.PollInterval,
		PollTimeout:        cfg.PollTimeout,
		MaxParallelUploads: cfg.MaxParallelUploads,
		ImageBaseURL:       cfg.ImageBaseURL,
		RollbackTimeout:    cfg.RequestTimeout,
	})
	return &inventoryService{
		client:   c,
		put:      put,
		aspects:  asp,
		pipeline: p,
		poller:   pipeline.Poller{Interval: cfg.AppendPollInterval, Timeout: cfg.AppendPollTimeout},
		log:      log,
		now:      time.Now,
	}
}

func (i *inventoryService) CreateBatch(ctx context.Context, s *session.Session, req BatchRequest) (pipeline.Report, error) {
	if err := session.Require(s, i.now()); err != nil {
		return pipeline.Report{}, err
	}

	src, err := sources.Open(req.Paths...)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("reading images: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			i.log.Warn(ctx, "closing image source failed", "error", err)
		}
	}()

	return i.pipeline.Run(ctx, pipeline.Submission{
		Session:   s,
		Files:     src.Files(),
		GroupSize: req.Photos,
		Data:      dropEmpty(req.Data),
		Observer:  req.Observer,
	})
}

func (i *inventoryService) SubmitArchiveJob(ctx context.Context, s *session.Session, zipPath string, photos int) error {
	if err := session.Require(s, i.now()); err != nil {
		return err
	}
	if photos < 1 {
		return ErrInvalidPhotos
	}
	if !strings.EqualFold(filepath.Ext(zipPath), ".zip") {
		return fmt.Errorf("%s: %w", zipPath, ErrNotArchive)
	}

	f, err := os.Open(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s: %w", zipPath, ErrNotArchive)
	}

	name := filepath.Base(zipPath)
	job, err := i.client.CreateArchiveJob(ctx, s, name, photos)
	if err != nil {
		return fmt.Errorf("creating archive job: %w", err)
	}

	if err := i.put.Put(ctx, job.UploadURL, f, st.Size(), "application/zip"); err != nil {
		return fmt.Errorf("%w: %s: %w", pipeline.ErrUploadFailed, name, err)
	}
	i.log.Info(ctx, "archive job submitted", "file", name, "photos", photos, "bytes", st.Size())
	return nil
}

func (i *inventoryService) Show(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error) {
	if err := session.Require(s, i.now()); err != nil {
		return nil, err
	}
	return i.client.GetRecord(ctx, s, id)
}

func (i *inventoryService) AppendImages(ctx context.Context, s *session.Session, id string, files []models.SelectedFile, progress func(done, total int)) ([]AppendResult, error) {
	if err := session.Require(s, i.now()); err != nil {
		return nil, err
	}

	rec, err := i.client.GetRecord(ctx, s, id)
	if err != nil {
		return nil, err
	}
	count := len(rec.Images)
	log := i.log.With("record_id", id)

	results := make([]AppendResult, len(files))
	for n, f := range files {
		results[n].Filename = f.Name
		if err := ctx.Err(); err != nil {
			results[n].Err = err
			continue
		}

		got, err := i.appendOne(ctx, s, id, f, count)
		if err != nil {
			log.Error(ctx, "append image failed", "file", f.Name, "error", err)
			results[n].Err = err
		} else {
			count = got
		}
		if progress != nil {
			progress(n+1, len(files))
		}
	}
	return results, nil
}

// appendOne uploads f and waits until the record holds more than count
// images. It returns the new image count.
func (i *inventoryService) appendOne(ctx context.Context, s *session.Session, id string, f models.SelectedFile, count int) (int, error) {
	target, err := i.client.RequestImageUpload(ctx, s, id, f.Name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pipeline.ErrMissingUploadTarget, err)
	}

	body, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pipeline.ErrUploadFailed, err)
	}
	defer body.Close()

	ct := target.ContentType
	if ct == "" {
		ct = f.MimeType
	}
	if err := i.put.Put(ctx, target.PresignedURL, body, f.Size, ct); err != nil {
		return 0, fmt.Errorf("%w: %w", pipeline.ErrUploadFailed, err)
	}

	res := i.poller.Poll(ctx, func(ctx context.Context) (*models.InventoryRecord, error) {
		return i.client.GetRecord(ctx, s, id)
	}, pipeline.MoreImagesThan(count))

	switch res.Status {
	case pipeline.PollReady:
		return len(res.Record.Images), nil
	case pipeline.PollCanceled:
		return 0, context.Cause(ctx)
	default:
		return 0, fmt.Errorf("%w: %s", pipeline.ErrProcessingTimeout, f.Name)
	}
}

func (i *inventoryService) Save(ctx context.Context, s *session.Session, id string, req SaveRequest) error {
	if err := session.Require(s, i.now()); err != nil {
		return err
	}

	values := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		values[k] = v
	}

	if req.Category != "" {
		doc, err := i.aspects.Get(ctx, req.Category)
		if err != nil {
			return err
		}
		fields := aspects.Fields(doc.Aspects)
		values = aspects.Normalize(fields, req.Data)
		if problems := aspects.Validate(fields, values); len(problems) > 0 {
			return &ValidationError{Category: req.Category, Problems: problems}
		}
	}

	patch := models.RecordPatch{Data: models.CoerceData(values)}
	if req.Images != nil {
		patch.Images = models.ToMasterURLs(req.Images)
	}

	if err := i.client.PatchRecord(ctx, s, id, patch); err != nil {
		return err
	}
	i.log.Info(ctx, "record saved", "record_id", id, "fields", len(patch.Data), "images", len(patch.Images))
	return nil
}

func (i *inventoryService) Delete(ctx context.Context, s *session.Session, id string) error {
	if err := session.Require(s, i.now()); err != nil {
		return err
	}
	if err := i.client.DeleteRecord(ctx, s, id); err != nil {
		return err
	}
	i.log.Info(ctx, "record deactivated", "record_id", id)
	return nil
}

func dropEmpty(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}
