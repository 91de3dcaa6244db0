package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
)

// Report summarizes one submission.
type Report struct {
	Total     int
	Succeeded int
	// Failed lists 1-based group numbers in ascending order.
	Failed   []int
	Outcomes []models.GroupOutcome
}

// Summarize folds outcomes, which must be in group order, into a Report.
func Summarize(outcomes []models.GroupOutcome) Report {
	r := Report{Total: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			r.Succeeded++
		} else {
			r.Failed = append(r.Failed, o.GroupNumber())
		}
	}
	return r
}

type Severity int

const (
	SeveritySuccess Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeveritySuccess {
		return "success"
	}
	return "error"
}

// Notice is one user-facing message.
type Notice struct {
	Severity Severity
	Text     string
}

// Notices renders the report as at most two messages: a success notice
// when anything succeeded, then a failure notice naming failed groups.
// When nothing succeeded only the failure notice is produced.
func (r Report) Notices() []Notice {
	var out []Notice

	if r.Succeeded > 0 {
		noun := "Items"
		if r.Succeeded == 1 {
			noun = "Item"
		}
		out = append(out, Notice{SeveritySuccess, fmt.Sprintf("%d Inventory %s created", r.Succeeded, noun)})

		if len(r.Failed) > 0 {
			if len(r.Failed) == 1 {
				out = append(out, Notice{SeverityError, fmt.Sprintf("Group %d failed to upload and was deactivated.", r.Failed[0])})
			} else {
				out = append(out, Notice{SeverityError, fmt.Sprintf("Groups %s failed to upload and were deactivated.", joinInts(r.Failed))})
			}
		}
		return out
	}

	switch len(r.Failed) {
	case 0:
		out = append(out, Notice{SeverityError, "Failed to create inventory items. Please try again."})
	case 1:
		out = append(out, Notice{SeverityError, fmt.Sprintf("Failed to create inventory items. Group %d could not be processed.", r.Failed[0])})
	default:
		out = append(out, Notice{SeverityError, fmt.Sprintf("Failed to create inventory items. Groups %s could not be processed.", joinInts(r.Failed))})
	}
	return out
}

// Announce delivers r's notices, waiting delay between consecutive ones so
// each stays readable. A cancelled ctx stops delivery early.
func Announce(ctx context.Context, r Report, delay time.Duration, notify func(Notice)) {
	for i, n := range r.Notices() {
		if i > 0 && delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		notify(n)
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
