// Package pipeline turns a set of local images into verified inventory
// records.
//
// A submission runs Build → Initiate → Upload, then for every group
// concurrently Poll → Resolve → Commit → Verify, and ends with a Report.
// Only preflight problems (bad grouping, no session, failed initiation)
// abort the submission; everything after that is contained per group, and
// a group that cannot reach a consistent state has its record deleted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

// API is the part of the inventory service a submission needs.
type API interface {
	InitiateBatch(ctx context.Context, s *session.Session, groups []models.ListingGroup, photos int) (map[string]models.BatchSlot, error)
	GetRecord(ctx context.Context, s *session.Session, id string) (*models.InventoryRecord, error)
	PatchRecord(ctx context.Context, s *session.Session, id string, patch models.RecordPatch) error
	DeleteRecord(ctx context.Context, s *session.Session, id string) error
}

type Phase string

const (
	PhaseBuilding   Phase = "building"
	PhaseInitiating Phase = "initiating"
	PhaseUploading  Phase = "uploading"
	PhaseProcessing Phase = "processing"
	PhaseReporting  Phase = "reporting"
	PhaseIdle       Phase = "idle"
)

// Observer receives phase changes and upload progress. Calls may come
// from several goroutines; Uploaded calls are serialized.
type Observer interface {
	Phase(p Phase, msg string)
	Uploaded(done, total int)
}

type nopObserver struct{}

func (nopObserver) Phase(Phase, string) {}
func (nopObserver) Uploaded(int, int)   {}

type Options struct {
	PollInterval       time.Duration
	PollTimeout        time.Duration
	MaxParallelUploads int
	ImageBaseURL       string
	// RollbackTimeout bounds each cleanup DELETE, which runs even after
	// the submission's context is cancelled.
	RollbackTimeout time.Duration
}

type Pipeline struct {
	api      API
	uploader *Uploader
	poller   Poller
	resolver Resolver
	log      logging.Logger
	opts     Options
	now      func() time.Time
}

func New(api API, put Putter, log logging.Logger, opts Options) *Pipeline {
	if opts.RollbackTimeout <= 0 {
		opts.RollbackTimeout = 30 * time.Second
	}
	return &Pipeline{
		api:      api,
		uploader: NewUploader(put, opts.MaxParallelUploads, log),
		poller:   Poller{Interval: opts.PollInterval, Timeout: opts.PollTimeout},
		resolver: Resolver{ImageBaseURL: opts.ImageBaseURL, Log: log},
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Submission is one batch request.
type Submission struct {
	Session   *session.Session
	Files     []models.SelectedFile
	GroupSize int
	// Data is applied to every created record; values are final strings.
	Data     map[string]string
	Observer Observer
}

// groupPlan is everything one group's pipeline needs. It is read-only
// once built.
type groupPlan struct {
	group    models.ListingGroup
	recordID string
	tasks    []models.UploadTask
	byName   map[string]models.UploadTask
	err      error
}

// Run executes a submission. The returned error is non-nil only for
// preflight failures and is then a *PreflightError; group failures are
// reported in the Report.
func (p *Pipeline) Run(ctx context.Context, sub Submission) (Report, error) {
	obs := sub.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	defer obs.Phase(PhaseIdle, "")

	if err := session.Require(sub.Session, p.now()); err != nil {
		return Report{}, &PreflightError{Stage: "session", Err: err}
	}

	obs.Phase(PhaseBuilding, "")
	groups, err := BuildGroups(sub.Files, sub.GroupSize)
	if err != nil {
		return Report{}, &PreflightError{Stage: "build", Err: err}
	}

	obs.Phase(PhaseInitiating, fmt.Sprintf("Creating %d Inventory %s...", len(groups), plural(len(groups), "Item", "Items")))
	slots, err := p.api.InitiateBatch(ctx, sub.Session, groups, sub.GroupSize)
	if err != nil {
		return Report{}, &PreflightError{Stage: "initiate", Err: err}
	}
	p.log.Info(ctx, "batch initiated", "groups", len(groups), "photos", sub.GroupSize)

	plans, tasks := p.plan(ctx, groups, slots)

	progress := NewProgress(len(tasks), obs.Uploaded)
	obs.Phase(PhaseUploading, "")
	progress.Start()
	results := p.uploader.UploadAll(ctx, tasks, progress)

	uploadErrs := make(map[int][]error)
	for _, r := range results {
		if r.Err != nil {
			uploadErrs[r.Task.GroupIndex] = append(uploadErrs[r.Task.GroupIndex], r.Err)
		}
	}
	if n := len(results) - countOK(results); n > 0 {
		p.log.Warn(ctx, "some uploads failed", "failed", n, "total", len(results))
	}

	obs.Phase(PhaseProcessing, "Verifying inventory creation...")
	outcomes := make([]models.GroupOutcome, len(plans))

	var g errgroup.Group
	for i, plan := range plans {
		g.Go(func() error {
			outcomes[i] = p.processGroup(ctx, sub, plan, uploadErrs[plan.group.Index])
			return nil
		})
	}
	_ = g.Wait()

	obs.Phase(PhaseReporting, "")
	report := Summarize(outcomes)
	p.log.Info(ctx, "batch finished", "succeeded", report.Succeeded, "failed", len(report.Failed))
	return report, nil
}

// plan binds the initiate response to groups and flattens the upload tasks
// of every group that can proceed.
func (p *Pipeline) plan(ctx context.Context, groups []models.ListingGroup, slots map[string]models.BatchSlot) ([]groupPlan, []models.UploadTask) {
	plans := make([]groupPlan, len(groups))
	var all []models.UploadTask

	for i, g := range groups {
		slot, found := slots[g.Key()]
		plan := groupPlan{group: g, recordID: slot.ID}

		tasks, err := BuildTasks(g, slot, found)
		if err != nil {
			p.log.Error(ctx, "group cannot be uploaded", "group", g.Number(), "record_id", slot.ID, "error", err)
			plan.err = err
			plans[i] = plan
			continue
		}

		plan.tasks = tasks
		plan.byName = make(map[string]models.UploadTask, len(tasks))
		for _, t := range tasks {
			plan.byName[t.Filename] = t
			if t.UploadID == "" {
				p.log.Warn(ctx, "no upload id in presigned url", "group", g.Number(), "record_id", t.RecordID, "file", t.Filename)
			}
		}
		all = append(all, tasks...)
		plans[i] = plan
	}
	return plans, all
}

// processGroup drives one group to Verified or RolledBack. It never
// returns an error; failures end up in the outcome.
func (p *Pipeline) processGroup(ctx context.Context, sub Submission, plan groupPlan, uploadErrs []error) models.GroupOutcome {
	g := plan.group
	out := models.GroupOutcome{GroupIndex: g.Index, RecordID: plan.recordID, State: models.GroupPending}
	log := p.log.With("group", g.Number(), "record_id", plan.recordID)

	fail := func(err error) models.GroupOutcome {
		out.Err = err
		if plan.recordID == "" {
			out.State = models.GroupSkipped
			log.Error(ctx, "group skipped", "error", err)
			return out
		}
		log.Error(ctx, "group failed, rolling back", "error", err)
		p.rollback(ctx, sub.Session, plan.recordID, log)
		out.State = models.GroupRolledBack
		return out
	}

	if plan.err != nil {
		return fail(plan.err)
	}

	out.State = models.GroupPolling
	want := len(g.Files)
	res := p.poller.Poll(ctx, func(ctx context.Context) (*models.InventoryRecord, error) {
		return p.api.GetRecord(ctx, sub.Session, plan.recordID)
	}, ImageCount(want))

	switch res.Status {
	case PollCanceled:
		return fail(errors.Join(context.Cause(ctx), errors.Join(uploadErrs...)))
	case PollTimedOut:
		got := 0
		if res.Record != nil {
			got = len(res.Record.Images)
		}
		log.Warn(ctx, "processing timed out", "images", got, "expected", want, "attempts", res.Attempts, "last_error", res.LastErr)
		err := fmt.Errorf("%w: %d of %d images", ErrProcessingTimeout, got, want)
		return fail(errors.Join(append([]error{err}, uploadErrs...)...))
	}

	out.State = models.GroupResolving
	ordered, err := p.resolver.Resolve(ctx, g, plan.byName, res.Record.Images, plan.recordID, res.Record.UserID)
	if err != nil {
		return fail(err)
	}

	out.State = models.GroupCommitting
	patch := models.RecordPatch{Images: ordered, Data: sub.Data}
	if err := p.api.PatchRecord(ctx, sub.Session, plan.recordID, patch); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrCommitFailed, err))
	}

	out.State = models.GroupVerifying
	rec, err := p.api.GetRecord(ctx, sub.Session, plan.recordID)
	if err != nil {
		return fail(fmt.Errorf("%w: re-read: %w", ErrVerifyMismatch, err))
	}
	if err := VerifyImages(rec.Images, want); err != nil {
		return fail(err)
	}

	out.State = models.GroupVerified
	out.Success = true
	log.Info(ctx, "group verified", "images", want)
	return out
}

// rollback soft-deletes a record. It runs on a context detached from ctx's
// cancellation so that an interrupted submission still cleans up; failure
// is logged and otherwise ignored.
func (p *Pipeline) rollback(ctx context.Context, s *session.Session, recordID string, log logging.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.RollbackTimeout)
	defer cancel()

	if err := p.api.DeleteRecord(rctx, s, recordID); err != nil {
		log.Error(ctx, "rollback failed", "error", err)
		return
	}
	log.Info(ctx, "record deactivated")
}

func countOK(results []models.UploadResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
