package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func outcomes(success ...bool) []models.GroupOutcome {
	out := make([]models.GroupOutcome, len(success))
	for i, s := range success {
		out[i] = models.GroupOutcome{GroupIndex: i, Success: s}
	}
	return out
}

func texts(ns []Notice) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Severity.String() + ": " + n.Text
	}
	return out
}

func TestSummarize(t *testing.T) {
	r := Summarize(outcomes(true, false, true, false))
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, []int{2, 4}, r.Failed)
}

func TestNotices(t *testing.T) {
	tests := []struct {
		name string
		in   []models.GroupOutcome
		want []string
	}{
		{"all ok", outcomes(true, true, true), []string{"success: 3 Inventory Items created"}},
		{"single ok", outcomes(true), []string{"success: 1 Inventory Item created"}},
		{"one failed", outcomes(true, false), []string{
			"success: 1 Inventory Item created",
			"error: Group 2 failed to upload and was deactivated.",
		}},
		{"two failed", outcomes(false, true, false), []string{
			"success: 1 Inventory Item created",
			"error: Groups 1, 3 failed to upload and were deactivated.",
		}},
		{"all failed", outcomes(false, false), []string{
			"error: Failed to create inventory items. Groups 1, 2 could not be processed.",
		}},
		{"only group failed", outcomes(false), []string{
			"error: Failed to create inventory items. Group 1 could not be processed.",
		}},
		{"nothing", nil, []string{"error: Failed to create inventory items. Please try again."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(Summarize(tt.in).Notices()))
		})
	}
}

func TestAnnounce_DelaysSecondNotice(t *testing.T) {
	var got []Notice
	var at []time.Time

	start := time.Now()
	Announce(context.Background(), Summarize(outcomes(true, false)), 30*time.Millisecond, func(n Notice) {
		got = append(got, n)
		at = append(at, time.Now())
	})

	assert.Len(t, got, 2)
	assert.Less(t, at[0].Sub(start), 30*time.Millisecond)
	assert.GreaterOrEqual(t, at[1].Sub(at[0]), 30*time.Millisecond)
}

func TestAnnounce_CanceledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []Notice
	Announce(ctx, Summarize(outcomes(true, false)), time.Hour, func(n Notice) { got = append(got, n) })
	assert.Len(t, got, 1)
	assert.Equal(t, SeveritySuccess, got[0].Severity)
}
