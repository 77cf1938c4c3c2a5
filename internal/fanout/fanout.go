// Package fanout runs independent per-item calls under a worker cap.
//
// Every item yields exactly one Result, success or failure, and a failure
// never cancels sibling work. Results arrive in completion order; callers
// that need input order use Report.InOrder. Progress events are delivered
// on the caller's goroutine, one per completed item, so aggregation never
// needs locking.
package fanout

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"igosint/internal/progress"
	"igosint/pkg/logger"
)

// Func is the per-item unit of work
type Func[I, T any] func(ctx context.Context, item I) (T, error)

// Options configures a fan-out run
type Options struct {
	// Workers caps concurrently active calls; 0 means DefaultWorkers()
	Workers int
	// Label names the batch in logs and progress events
	Label string
	// OnProgress is called once per completed item
	OnProgress func(Event)
	Logger     logger.Logger
	// Now overrides the clock used for progress estimates
	Now func() time.Time
}

// Result is the outcome of one item
type Result[T any] struct {
	Index    int
	Key      string
	Value    T
	Err      error
	Duration time.Duration
}

// OK reports whether the item succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Event reports a completed item
type Event struct {
	Label     string
	Key       string
	Err       error
	Completed int
	Succeeded int
	Failed    int
	Total     int
	Remaining progress.Remaining
}

// Report is the aggregate of a finished run
type Report[T any] struct {
	// Results holds one entry per item in completion order
	Results   []Result[T]
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// InOrder returns the results sorted by input position
func (r *Report[T]) InOrder() []Result[T] {
	out := make([]Result[T], len(r.Results))
	copy(out, r.Results)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// DefaultWorkers is min(32, NumCPU+4)
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

type job[I any] struct {
	index int
	item  I
}

// Run executes fn for every item with at most opts.Workers calls in flight
// and blocks until every item has a Result. If ctx is cancelled, items not
// yet started fail with the context error.
func Run[I, T any](ctx context.Context, items []I, key func(I) string, fn Func[I, T], opts Options) *Report[T] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	tracker := progress.NewTracker(len(items), now)
	report := &Report[T]{
		Results: make([]Result[T], 0, len(items)),
		Total:   len(items),
	}
	if len(items) == 0 {
		return report
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(items) {
		workers = len(items)
	}

	log.DebugWithFields("Starting fan-out", map[string]interface{}{
		"stage":   opts.Label,
		"items":   len(items),
		"workers": workers,
	})

	jobQueue := make(chan job[I])
	resultQueue := make(chan Result[T], workers)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobQueue)
		for i, item := range items {
			select {
			case jobQueue <- job[I]{index: i, item: item}:
			case <-ctx.Done():
				for j := i; j < len(items); j++ {
					resultQueue <- Result[T]{Index: j, Key: key(items[j]), Err: ctx.Err()}
				}
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range jobQueue {
				resultQueue <- processJob(ctx, j, key, fn, now)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(resultQueue)
	}()

	for res := range resultQueue {
		report.Results = append(report.Results, res)
		if res.Err != nil {
			report.Failed++
			logger.LogFanOutFailure(log, opts.Label, res.Key, res.Err)
		} else {
			report.Succeeded++
		}

		if opts.OnProgress != nil {
			completed := len(report.Results)
			opts.OnProgress(Event{
				Label:     opts.Label,
				Key:       res.Key,
				Err:       res.Err,
				Completed: completed,
				Succeeded: report.Succeeded,
				Failed:    report.Failed,
				Total:     report.Total,
				Remaining: tracker.Remaining(completed),
			})
		}
	}

	report.Elapsed = tracker.Elapsed()
	return report
}

func processJob[I, T any](ctx context.Context, j job[I], key func(I) string, fn Func[I, T], now func() time.Time) (res Result[T]) {
	start := now()
	res = Result[T]{Index: j.index, Key: key(j.item)}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic in worker: %v", r)
		}
		res.Duration = now().Sub(start)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Err = fn(ctx, j.item)
	return res
}
