// Package progress estimates the remaining time of a batch from how long
// the completed part took.
package progress

import (
	"fmt"
	"time"
)

// Remaining is a remaining-time estimate. Known is false until at least
// one item has completed.
type Remaining struct {
	Duration time.Duration
	Known    bool
}

// Unknown is the estimate before any item completes
var Unknown = Remaining{}

// String renders the estimate as HH:MM:SS, or "unknown"
func (r Remaining) String() string {
	if !r.Known {
		return "unknown"
	}
	total := int64(r.Duration.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Estimate returns elapsed/completed*(total-completed), where elapsed is
// now minus startedAt. It is Unknown when completed is zero and zero once
// completed reaches total.
func Estimate(startedAt time.Time, completed, total int, now time.Time) Remaining {
	if completed <= 0 {
		return Unknown
	}
	if completed >= total {
		return Remaining{Known: true}
	}
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	perItem := elapsed / time.Duration(completed)
	return Remaining{Duration: perItem * time.Duration(total-completed), Known: true}
}

// Tracker binds a start time and a total to Estimate
type Tracker struct {
	StartedAt time.Time
	Total     int
	now       func() time.Time
}

// NewTracker starts tracking a batch of total items at now()
func NewTracker(total int, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{StartedAt: now(), Total: total, now: now}
}

// Remaining estimates the time left after completed items
func (t *Tracker) Remaining(completed int) Remaining {
	return Estimate(t.StartedAt, completed, t.Total, t.now())
}

// Elapsed returns the time since the batch started
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.StartedAt)
}
