package pipeline

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
)

type PollStatus int

const (
	PollReady PollStatus = iota
	PollTimedOut
	PollCanceled
)

func (s PollStatus) String() string {
	switch s {
	case PollReady:
		return "ready"
	case PollTimedOut:
		return "timed out"
	case PollCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// PollResult is the tagged outcome of a Poll. Record is the last record
// read, if any; LastErr is the last read error seen, if any.
type PollResult struct {
	Status   PollStatus
	Record   *models.InventoryRecord
	LastErr  error
	Attempts int
}

// FetchFunc reads the current state of a record.
type FetchFunc func(ctx context.Context) (*models.InventoryRecord, error)

// Poller re-reads a record at a fixed interval until a condition holds or
// the timeout elapses.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Poll reads immediately and then every Interval. Read errors are
// tolerated until the deadline. It never returns an error: the caller
// decides what a non-ready status means.
func (p Poller) Poll(ctx context.Context, fetch FetchFunc, ready func(*models.InventoryRecord) bool) PollResult {
	pollCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	var res PollResult
	for {
		res.Attempts++
		rec, err := fetch(pollCtx)
		if err != nil {
			res.LastErr = err
		} else {
			res.Record = rec
			if ready(rec) {
				res.Status = PollReady
				return res
			}
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				res.Status = PollCanceled
			} else {
				res.Status = PollTimedOut
			}
			return res
		case <-ticker.C:
		}
	}
}

// ImageCount is a readiness condition for Poll: the record holds exactly
// n images.
func ImageCount(n int) func(*models.InventoryRecord) bool {
	return func(r *models.InventoryRecord) bool {
		return r != nil && len(r.Images) == n
	}
}

// MoreImagesThan is a readiness condition for Poll: the record holds more
// than n images.
func MoreImagesThan(n int) func(*models.InventoryRecord) bool {
	return func(r *models.InventoryRecord) bool {
		return r != nil && len(r.Images) > n
	}
}
