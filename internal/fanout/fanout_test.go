package fanout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/pkg/config"
	"igosint/pkg/logger"
)

func intKey(i int) string { return strconv.Itoa(i) }

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestRunNeverExceedsCap(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 7} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var active, peak atomic.Int32
			items := seq(40)

			report := Run(context.Background(), items, intKey, func(ctx context.Context, i int) (int, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return i * 2, nil
			}, Options{Workers: workers})

			assert.LessOrEqual(t, int(peak.Load()), workers)
			assert.Len(t, report.Results, len(items))
			assert.Equal(t, len(items), report.Succeeded)
		})
	}
}

func TestRunFailuresDoNotCancelSiblings(t *testing.T) {
	tl := logger.NewTestLogger()
	items := seq(10)

	report := Run(context.Background(), items, intKey, func(ctx context.Context, i int) (string, error) {
		if i%3 == 0 {
			return "", errors.New("rate limited")
		}
		return "ok-" + strconv.Itoa(i), nil
	}, Options{Workers: 3, Label: "comments", Logger: tl})

	require.Len(t, report.Results, 10)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 4, report.Failed)
	assert.Equal(t, 6, report.Succeeded)

	ordered := report.InOrder()
	for i, r := range ordered {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, strconv.Itoa(i), r.Key)
		if i%3 == 0 {
			assert.False(t, r.OK())
		} else {
			assert.Equal(t, "ok-"+strconv.Itoa(i), r.Value)
		}
	}

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 4)
	assert.Equal(t, "comments", warns[0].Fields["stage"])
}

func TestRunEmptyInput(t *testing.T) {
	called := false
	report := Run(context.Background(), []int{}, intKey, func(ctx context.Context, i int) (int, error) {
		called = true
		return 0, nil
	}, Options{OnProgress: func(Event) { called = true }})

	assert.False(t, called)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.Succeeded)
}

func TestRunProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	items := seq(5)

	Run(context.Background(), items, intKey, func(ctx context.Context, i int) (int, error) {
		if i == 2 {
			return 0, errors.New("boom")
		}
		return i, nil
	}, Options{Workers: 2, Label: "likers", OnProgress: func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}})

	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, i+1, e.Completed)
		assert.Equal(t, 5, e.Total)
		assert.Equal(t, "likers", e.Label)
		assert.True(t, e.Remaining.Known)
	}
	last := events[4]
	assert.Equal(t, 4, last.Succeeded)
	assert.Equal(t, 1, last.Failed)
	assert.Zero(t, last.Remaining.Duration)
}

func TestRunRecoversPanics(t *testing.T) {
	report := Run(context.Background(), seq(3), intKey, func(ctx context.Context, i int) (int, error) {
		if i == 1 {
			panic("nil map")
		}
		return i, nil
	}, Options{Workers: 1})

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	for _, r := range report.Results {
		if r.Index == 1 {
			assert.ErrorContains(t, r.Err, "panic in worker")
		}
	}
}

func TestRunCancelledContextKeepsCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32

	report := Run(ctx, seq(20), intKey, func(ctx context.Context, i int) (int, error) {
		if started.Add(1) == 1 {
			cancel()
		}
		return i, nil
	}, Options{Workers: 1})

	assert.Len(t, report.Results, 20)
	assert.Equal(t, 20, report.Succeeded+report.Failed)
	assert.Positive(t, report.Failed)
	for _, r := range report.Results {
		if r.Err != nil {
			assert.ErrorIs(t, r.Err, context.Canceled)
		}
	}
}

func TestRunDefaultsWorkers(t *testing.T) {
	report := Run(context.Background(), seq(3), intKey, func(ctx context.Context, i int) (int, error) {
		return i, nil
	}, Options{})
	assert.Equal(t, 3, report.Succeeded)
	assert.GreaterOrEqual(t, DefaultWorkers(), 5)
	assert.LessOrEqual(t, DefaultWorkers(), 32)
}

func TestAdaptiveCap(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 4},
		{99, 4},
		{100, 2},
		{199, 2},
		{200, 1},
		{5000, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultAdaptiveCap.For(tt.n), "n=%d", tt.n)
	}

	custom := AdaptiveCapFrom(config.AdaptiveCapConfig{Base: 8, Medium: 3, Large: 0, MediumAt: 10, LargeAt: 20})
	assert.Equal(t, 8, custom.For(9))
	assert.Equal(t, 3, custom.For(10))
	assert.Equal(t, 1, custom.For(20), "cap never drops below one")
	assert.Equal(t, AdaptiveCapFrom(config.DefaultConfig().Collect.InfoWorkers), DefaultAdaptiveCap)
}
