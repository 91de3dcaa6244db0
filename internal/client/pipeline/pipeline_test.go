package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/dmitrijs2005/cardkeeper/internal/client/session"
	"github.com/dmitrijs2005/cardkeeper/internal/common"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liveSession = &session.Session{Token: "tok", Username: "alice", ExpiresAt: time.Now().Add(time.Hour)}

func newTestPipeline(api *fakeAPI, put Putter) *Pipeline {
	return New(api, put, logging.Discard(), Options{
		PollInterval:       5 * time.Millisecond,
		PollTimeout:        150 * time.Millisecond,
		MaxParallelUploads: 4,
		ImageBaseURL:       "https://tcgid.io/images",
		RollbackTimeout:    time.Second,
	})
}

func run(t *testing.T, api *fakeAPI, put Putter, files []models.SelectedFile, size int) (Report, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	rep, err := newTestPipeline(api, put).Run(context.Background(), Submission{
		Session:   liveSession,
		Files:     files,
		GroupSize: size,
		Observer:  obs,
	})
	require.NoError(t, err)
	return rep, obs
}

func TestScenarioA_AllGroupsSucceed(t *testing.T) {
	api := newFakeAPI()
	put := &fakePutter{api: api}
	files := memFiles(6)

	rep, obs := run(t, api, put, files, 2)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 3, rep.Succeeded)
	assert.Empty(t, rep.Failed)
	assert.Equal(t, []string{"success: 3 Inventory Items created"}, texts(rep.Notices()))
	assert.Empty(t, api.deleted())

	for _, o := range rep.Outcomes {
		assert.Equal(t, models.GroupVerified, o.State)
		require.NoError(t, o.Err)

		// Images persisted in file order even though the service returned them reversed.
		patch := api.lastPatch[o.RecordID]
		require.Len(t, patch.Images, 2)
		for i, img := range patch.Images {
			name := files[o.GroupIndex*2+i].Name
			var upload string
			for _, ref := range api.byURL {
				if ref.name == name {
					upload = ref.upload
				}
			}
			assert.True(t, strings.Contains(img, "/"+upload+"/"), "group %d slot %d", o.GroupNumber(), i)
		}
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, obs.progress)
	assert.Equal(t, 6, obs.total)
	assert.Equal(t, []Phase{PhaseBuilding, PhaseInitiating, PhaseUploading, PhaseProcessing, PhaseReporting, PhaseIdle}, obs.phases)
	assert.Contains(t, obs.messages, "Creating 3 Inventory Items...")
	assert.Equal(t, "image/jpeg", put.types["card01.jpg"])
}

func TestScenarioB_InvalidGroupingMakesNoCalls(t *testing.T) {
	api := newFakeAPI()
	put := &fakePutter{api: api}

	_, err := newTestPipeline(api, put).Run(context.Background(), Submission{Session: liveSession, Files: memFiles(4), GroupSize: 3})

	var pre *PreflightError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, "build", pre.Stage)
	var ge *InvalidGroupingError
	require.True(t, errors.As(err, &ge))
	assert.ErrorIs(t, err, ErrInvalidGrouping)

	assert.Zero(t, api.initCalls)
	assert.Zero(t, api.getCalls)
	assert.Empty(t, put.types)
}

func TestScenarioC_OneGroupTimesOut(t *testing.T) {
	api := newFakeAPI()
	api.stuck = map[int]bool{2: true}

	rep, _ := run(t, api, &fakePutter{api: api}, memFiles(4), 2)

	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, []int{2}, rep.Failed)
	assert.Equal(t, []string{
		"success: 1 Inventory Item created",
		"error: Group 2 failed to upload and was deactivated.",
	}, texts(rep.Notices()))

	assert.Equal(t, []string{api.recordOf(2)}, api.deleted())
	assert.ErrorIs(t, rep.Outcomes[1].Err, ErrProcessingTimeout)
	assert.Equal(t, models.GroupRolledBack, rep.Outcomes[1].State)
}

func TestScenarioD_UnexpectedURLShape(t *testing.T) {
	odd := func(owner, record, upload, name string) string {
		if name == "card02.jpg" {
			return "https://uploads.example/put/" + name + "?sig=1"
		}
		return "https://bucket.s3.amazonaws.com/" + owner + "/" + record + "/" + upload + "/" + name + "?sig=1"
	}

	t.Run("owner known", func(t *testing.T) {
		api := newFakeAPI()
		api.urlFor = odd

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 2)
		require.Equal(t, 1, rep.Succeeded)
		assert.Empty(t, api.deleted())

		images := api.lastPatch[rep.Outcomes[0].RecordID].Images
		require.Len(t, images, 2)
		assert.Equal(t, "https://tcgid.io/images/"+api.owner+"/"+rep.Outcomes[0].RecordID+"/unknown/master.png", images[1])
	})

	t.Run("no identifiers at all", func(t *testing.T) {
		api := newFakeAPI()
		api.urlFor = func(owner, record, upload, name string) string {
			return "https://uploads.example/put/" + name + "?sig=1"
		}

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 2)
		assert.Equal(t, []int{1}, rep.Failed)
		assert.Equal(t, models.GroupRolledBack, rep.Outcomes[0].State)
		assert.ErrorIs(t, rep.Outcomes[0].Err, ErrOrderingFailed)
		assert.Equal(t, []string{rep.Outcomes[0].RecordID}, api.deleted())
		assert.Empty(t, api.patchCalls)
	})

	t.Run("owner unknown", func(t *testing.T) {
		api := newFakeAPI()
		api.urlFor = odd
		api.owner = ""

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 2)
		assert.Equal(t, []int{1}, rep.Failed)
		assert.ErrorIs(t, rep.Outcomes[0].Err, ErrOrderingFailed)
		assert.Equal(t, []string{rep.Outcomes[0].RecordID}, api.deleted())
		assert.Empty(t, api.patchCalls)
	})
}

func TestRun_UploadFailureSurfacesInTimeout(t *testing.T) {
	api := newFakeAPI()
	put := &fakePutter{api: api, fail: map[string]bool{"card03.jpg": true}}

	rep, obs := run(t, api, put, memFiles(4), 2)

	assert.Equal(t, []int{2}, rep.Failed)
	err := rep.Outcomes[1].Err
	assert.ErrorIs(t, err, ErrProcessingTimeout)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, []string{api.recordOf(2)}, api.deleted())
	assert.Equal(t, 4, obs.progress[len(obs.progress)-1], "failed uploads still count as settled")
}

func TestRun_RollbackOnlyOnFailure(t *testing.T) {
	t.Run("patch rejected", func(t *testing.T) {
		api := newFakeAPI()
		api.patchErr = errors.New("422")

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 1)
		assert.Equal(t, []int{1, 2}, rep.Failed)
		assert.ElementsMatch(t, []string{api.recordOf(1), api.recordOf(2)}, api.deleted())
		assert.ErrorIs(t, rep.Outcomes[0].Err, ErrCommitFailed)
	})

	t.Run("verify sees error image", func(t *testing.T) {
		api := newFakeAPI()
		api.verifyOver = map[int][]string{1: {"https://tcgid.io/images/error.png"}}

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 1)
		assert.Equal(t, []int{1}, rep.Failed)
		assert.Equal(t, []string{api.recordOf(1)}, api.deleted())
		assert.ErrorIs(t, rep.Outcomes[0].Err, ErrVerifyMismatch)
	})

	t.Run("verify count mismatch", func(t *testing.T) {
		api := newFakeAPI()
		api.verifyOver = map[int][]string{2: {}}

		rep, _ := run(t, api, &fakePutter{api: api}, memFiles(2), 1)
		assert.Equal(t, []int{2}, rep.Failed)
		assert.Equal(t, []string{api.recordOf(2)}, api.deleted())
	})
}

func TestRun_MissingGroupsAndTargets(t *testing.T) {
	api := newFakeAPI()
	api.omitGroups = map[int]bool{1: true}
	api.noURLFor = map[string]bool{"card04.jpg": true}

	rep, obs := run(t, api, &fakePutter{api: api}, memFiles(6), 2)

	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, []int{1, 2}, rep.Failed)

	assert.Equal(t, models.GroupSkipped, rep.Outcomes[0].State)
	assert.ErrorIs(t, rep.Outcomes[0].Err, ErrMissingRecord)

	assert.Equal(t, models.GroupRolledBack, rep.Outcomes[1].State)
	assert.ErrorIs(t, rep.Outcomes[1].Err, ErrMissingUploadTarget)

	// Only the reported record is rolled back; the unreported one is left alone.
	assert.Equal(t, []string{api.recordOf(2)}, api.deleted())
	assert.Equal(t, 2, obs.total, "only group 3 is uploaded")
}

func TestRun_Preflight(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		api := newFakeAPI()
		_, err := newTestPipeline(api, &fakePutter{api: api}).Run(context.Background(), Submission{Files: memFiles(1), GroupSize: 1})
		require.ErrorIs(t, err, common.ErrNoSession)
		assert.Zero(t, api.initCalls)
	})

	t.Run("expired session", func(t *testing.T) {
		api := newFakeAPI()
		s := &session.Session{Token: "t", ExpiresAt: time.Now().Add(-time.Minute)}
		_, err := newTestPipeline(api, &fakePutter{api: api}).Run(context.Background(), Submission{Session: s, Files: memFiles(1), GroupSize: 1})
		require.ErrorIs(t, err, common.ErrSessionExpired)
	})

	t.Run("initiate fails", func(t *testing.T) {
		api := newFakeAPI()
		api.initErr = errors.New("503")
		_, err := newTestPipeline(api, &fakePutter{api: api}).Run(context.Background(), Submission{Session: liveSession, Files: memFiles(2), GroupSize: 1})

		var pre *PreflightError
		require.True(t, errors.As(err, &pre))
		assert.Equal(t, "initiate", pre.Stage)
		assert.Zero(t, api.getCalls)
		assert.Empty(t, api.deleted())
	})
}

func TestRun_CancelStillRollsBack(t *testing.T) {
	api := newFakeAPI()
	api.stuck = map[int]bool{1: true}

	ctx, cancel := context.WithCancel(context.Background())
	p := New(api, &fakePutter{api: api}, logging.Discard(), Options{
		PollInterval: 5 * time.Millisecond, PollTimeout: time.Minute, MaxParallelUploads: 2,
	})

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	rep, err := p.Run(ctx, Submission{Session: liveSession, Files: memFiles(2), GroupSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rep.Failed)
	assert.ErrorIs(t, rep.Outcomes[0].Err, context.Canceled)
	assert.Equal(t, []string{api.recordOf(1)}, api.deleted())
}
