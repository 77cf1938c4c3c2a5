package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		elapsed   time.Duration
		completed int
		total     int
		want      Remaining
	}{
		{"nothing completed", 10 * time.Second, 0, 10, Unknown},
		{"quarter done", 10 * time.Second, 1, 4, Remaining{Duration: 30 * time.Second, Known: true}},
		{"half done", time.Minute, 5, 10, Remaining{Duration: time.Minute, Known: true}},
		{"all done", time.Minute, 10, 10, Remaining{Known: true}},
		{"empty batch", 0, 0, 0, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(start, tt.completed, tt.total, start.Add(tt.elapsed))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateIsDefinedAndNonNegative(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start.Add(17 * time.Second)

	for total := 0; total <= 25; total++ {
		for completed := 0; completed <= total; completed++ {
			r := Estimate(start, completed, total, now)
			assert.Equal(t, completed > 0, r.Known, "completed=%d total=%d", completed, total)
			assert.GreaterOrEqual(t, r.Duration, time.Duration(0))
		}
	}
}

func TestEstimateTrendsToZero(t *testing.T) {
	start := time.Unix(1700000000, 0)
	prev := time.Duration(1<<62 - 1)

	// constant throughput of one item per second
	for completed := 1; completed <= 10; completed++ {
		r := Estimate(start, completed, 10, start.Add(time.Duration(completed)*time.Second))
		assert.LessOrEqual(t, r.Duration, prev)
		prev = r.Duration
	}
	assert.Zero(t, prev)
}

func TestRemainingString(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "00:00:00", Remaining{Known: true}.String())
	assert.Equal(t, "00:01:05", Remaining{Duration: 65 * time.Second, Known: true}.String())
	assert.Equal(t, "27:46:40", Remaining{Duration: 100000 * time.Second, Known: true}.String())
}

func TestTracker(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	tr := NewTracker(4, clock)
	assert.Equal(t, Unknown, tr.Remaining(0))

	now = now.Add(20 * time.Second)
	assert.Equal(t, 20*time.Second, tr.Elapsed())
	assert.Equal(t, "00:00:20", tr.Remaining(2).String())
}
