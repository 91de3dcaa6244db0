package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/aspects"
	"github.com/dmitrijs2005/cardkeeper/internal/client/client"
	"github.com/dmitrijs2005/cardkeeper/internal/client/config"
	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/pipeline"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/client/sources"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
	"github.com/dmitrijs2005/cardkeeper/internal/netx"
	"github.com/dmitrijs2005/cardkeeper/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardAspects = `{
  "categoryId": "183454",
  "aspects": [
    {"localizedAspectName": "Game", "aspectConstraint": {"aspectRequired": true, "aspectMode": "SELECTION_ONLY"},
     "aspectValues": [{"localizedValue": "Pokémon TCG"}, {"localizedValue": "Magic: The Gathering"}]},
    {"localizedAspectName": "Features", "aspectConstraint": {"itemToAspectCardinality": "MULTI"}}
  ]
}`

type env struct {
	fake *testutil.FakeInventory
	svc  InventoryService
	sess *session.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := testutil.NewFakeInventory(t)
	fake.Aspects["183454"] = cardAspects

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ImageBaseURL = fake.ImageBaseURL()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.PollTimeout = 500 * time.Millisecond
	cfg.AppendPollInterval = 10 * time.Millisecond
	cfg.AppendPollTimeout = 500 * time.Millisecond
	cfg.RequestTimeout = 5 * time.Second

	api := client.NewHTTPClient(fake.URL(), 5*time.Second)
	asp := aspects.NewService(fake.AspectsBaseURL(), time.Hour, fake.Server.Client(), nil, logging.Discard())
	svc := NewInventoryService(api, netx.NewUploader(5*time.Second), asp, cfg, logging.Discard())

	sess, err := session.FromToken(fake.Token(time.Hour), testutil.Username)
	require.NoError(t, err)

	return &env{fake: fake, svc: svc, sess: sess}
}

func writeImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("card%02d.jpg", i+1))
		require.NoError(t, os.WriteFile(paths[i], []byte(fmt.Sprintf("jpeg-%d", i+1)), 0o644))
	}
	return paths
}

type progressLog struct {
	mu    sync.Mutex
	calls [][2]int
}

func (p *progressLog) Phase(pipeline.Phase, string) {}

func (p *progressLog) Uploaded(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [2]int{done, total})
}

func TestCreateBatch_AllGroupsVerified(t *testing.T) {
	e := newEnv(t)
	paths := writeImages(t, 4)
	obs := &progressLog{}

	rep, err := e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{
		Paths:    paths,
		Photos:   2,
		Data:     map[string]string{"Game": "Pokémon TCG", "Note": " "},
		Observer: obs,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Empty(t, rep.Failed)
	assert.Empty(t, e.fake.Deletes())

	for group, files := range map[int][]string{1: {"card01.jpg", "card02.jpg"}, 2: {"card03.jpg", "card04.jpg"}} {
		rec, ok := e.fake.Record(e.fake.RecordForGroup(group))
		require.True(t, ok)
		require.Len(t, rec.Images, 2)
		for i, name := range files {
			assert.Contains(t, rec.Images[i], e.fake.UploadID(name), "group %d image %d out of order", group, i)
		}
		assert.Equal(t, map[string]string{"Game": "Pokémon TCG"}, rec.Data)
	}

	body, ct, ok := e.fake.Object("card03.jpg")
	require.True(t, ok)
	assert.Equal(t, "jpeg-3", string(body))
	assert.Equal(t, "image/jpeg", ct)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.NotEmpty(t, obs.calls)
	assert.Equal(t, [2]int{0, 4}, obs.calls[0])
	assert.Equal(t, [2]int{4, 4}, obs.calls[len(obs.calls)-1])
}

func TestCreateBatch_RejectedUploadRollsBackItsGroupOnly(t *testing.T) {
	e := newEnv(t)
	e.fake.RejectUploads["card03.jpg"] = true

	rep, err := e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{Paths: writeImages(t, 4), Photos: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, []int{2}, rep.Failed)

	failed := e.fake.RecordForGroup(2)
	assert.Equal(t, []string{failed}, e.fake.Deletes())

	rec, _ := e.fake.Record(failed)
	assert.True(t, rec.Deleted)

	var outcome models.GroupOutcome
	for _, o := range rep.Outcomes {
		if o.GroupNumber() == 2 {
			outcome = o
		}
	}
	assert.ErrorIs(t, outcome.Err, pipeline.ErrProcessingTimeout)
	assert.ErrorIs(t, outcome.Err, netx.ErrUploadRejected)
}

func TestCreateBatch_StuckAndOmittedGroups(t *testing.T) {
	e := newEnv(t)
	e.fake.StuckGroups[1] = true
	e.fake.OmitGroups[3] = true

	rep, err := e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{Paths: writeImages(t, 3), Photos: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, []int{1, 3}, rep.Failed)
	assert.Equal(t, []string{e.fake.RecordForGroup(1)}, e.fake.Deletes(), "omitted group has no id to delete")
}

func TestCreateBatch_CommitRejectedRollsBack(t *testing.T) {
	e := newEnv(t)
	e.fake.PatchStatus = 500

	rep, err := e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{Paths: writeImages(t, 2), Photos: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Succeeded)
	assert.Equal(t, []int{1, 2}, rep.Failed)
	assert.Len(t, e.fake.Deletes(), 2)
	assert.Len(t, e.fake.Patches(), 2)
}

func TestCreateBatch_Preflight(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{Paths: writeImages(t, 3), Photos: 2})
	assert.ErrorIs(t, err, pipeline.ErrInvalidGrouping)

	_, err = e.svc.CreateBatch(context.Background(), e.sess, BatchRequest{Paths: []string{t.TempDir()}, Photos: 1})
	assert.ErrorIs(t, err, sources.ErrNoImages)

	expired, err := session.FromToken(e.fake.Token(-time.Minute), testutil.Username)
	require.NoError(t, err)
	_, err = e.svc.CreateBatch(context.Background(), expired, BatchRequest{Paths: writeImages(t, 1), Photos: 1})
	assert.ErrorIs(t, err, common.ErrSessionExpired)

	assert.Zero(t, e.fake.Requests())
}

func TestSubmitArchiveJob(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "cards.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK\x03\x04fake"), 0o644))

	require.NoError(t, e.svc.SubmitArchiveJob(context.Background(), e.sess, archive, 2))

	assert.Equal(t, []string{"cards.zip"}, e.fake.Jobs())
	body, ct, ok := e.fake.Object("cards.zip")
	require.True(t, ok)
	assert.Equal(t, "application/zip", ct)
	assert.Equal(t, "PK\x03\x04fake", string(body))
}

func TestSubmitArchiveJob_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	paths := writeImages(t, 1)

	assert.ErrorIs(t, e.svc.SubmitArchiveJob(ctx, e.sess, paths[0], 1), ErrNotArchive)
	assert.ErrorIs(t, e.svc.SubmitArchiveJob(ctx, e.sess, "cards.zip", 0), ErrInvalidPhotos)
	assert.ErrorIs(t, e.svc.SubmitArchiveJob(ctx, nil, "cards.zip", 1), common.ErrNoSession)
	assert.Error(t, e.svc.SubmitArchiveJob(ctx, e.sess, filepath.Join(t.TempDir(), "missing.zip"), 1))
	assert.Empty(t, e.fake.Jobs())
}

func TestAppendImages(t *testing.T) {
	e := newEnv(t)
	id := e.fake.SeedRecord(e.fake.ImageBaseURL() + "/existing/master.png")

	src, err := sources.Files(writeImages(t, 2)...)
	require.NoError(t, err)

	var progress [][2]int
	results, err := e.svc.AppendImages(context.Background(), e.sess, id, src.Files(), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)

	want := []AppendResult{{Filename: "card01.jpg"}, {Filename: "card02.jpg"}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	rec, ok := e.fake.Record(id)
	require.True(t, ok)
	assert.Len(t, rec.Images, 3)
}

func TestAppendImages_PerFileFailure(t *testing.T) {
	e := newEnv(t)
	e.fake.RejectUploads["card01.jpg"] = true
	id := e.fake.SeedRecord()

	src, err := sources.Files(writeImages(t, 2)...)
	require.NoError(t, err)

	results, err := e.svc.AppendImages(context.Background(), e.sess, id, src.Files(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.ErrorIs(t, results[0].Err, pipeline.ErrUploadFailed)
	assert.NoError(t, results[1].Err)

	rec, _ := e.fake.Record(id)
	assert.Len(t, rec.Images, 1)
}

func TestAppendImages_UnknownRecord(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.AppendImages(context.Background(), e.sess, "nope", nil, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSave_NormalizesImagesAndData(t *testing.T) {
	e := newEnv(t)
	base := e.fake.ImageBaseURL()
	id := e.fake.SeedRecord(base + "/a/300.png")

	err := e.svc.Save(context.Background(), e.sess, id, SaveRequest{
		Data:     map[string]string{"Game": "Pokémon TCG", "Features": "Holo, First Edition", "Empty": ""},
		Images:   []string{base + "/a/300.png", "", base + "/b/1600.png"},
		Category: "183454",
	})
	require.NoError(t, err)

	rec, _ := e.fake.Record(id)
	assert.Equal(t, []string{base + "/a/master.png", base + "/b/master.png"}, rec.Images)
	assert.Equal(t, map[string]string{"Game": "Pokémon TCG", "Features": "Holo, First Edition"}, rec.Data)
}

func TestSave_InvalidAspectsNotPatched(t *testing.T) {
	e := newEnv(t)
	id := e.fake.SeedRecord()

	err := e.svc.Save(context.Background(), e.sess, id, SaveRequest{
		Data:     map[string]string{"Game": "Chess"},
		Category: "183454",
	})
	require.ErrorIs(t, err, ErrInvalidAspects)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`Game: "Chess" is not a valid option`}, verr.Problems)
	assert.Empty(t, e.fake.Patches())
}

func TestSave_UnknownCategory(t *testing.T) {
	e := newEnv(t)
	id := e.fake.SeedRecord()

	err := e.svc.Save(context.Background(), e.sess, id, SaveRequest{Data: map[string]string{"a": "b"}, Category: "999"})
	assert.ErrorIs(t, err, aspects.ErrFetch)
	assert.Empty(t, e.fake.Patches())
}

func TestShowAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.fake.SeedRecord("https://img/x/master.png")

	rec, err := e.svc.Show(ctx, e.sess, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, []string{"https://img/x/master.png"}, rec.Images)
	assert.Equal(t, e.fake.Owner, rec.UserID)

	require.NoError(t, e.svc.Delete(ctx, e.sess, id))
	assert.Equal(t, []string{id}, e.fake.Deletes())

	_, err = e.svc.Show(ctx, e.sess, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
