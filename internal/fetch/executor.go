package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the executor's cap when none is configured.
const DefaultConcurrency = 16

// Result is the outcome of one source call.
type Result struct {
	SourceID  string
	Payload   []byte
	Succeeded bool
	Elapsed   time.Duration
	ElapsedMs int64
	Err       error
}

// Executor fans a tier out across its sources with bounded concurrency.
type Executor struct {
	limit int
}

// NewExecutor creates an executor running at most limit calls at once.
func NewExecutor(limit int) *Executor {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &Executor{limit: limit}
}

// Limit returns the concurrency cap.
func (e *Executor) Limit() int { return e.limit }

// RunTier calls every source with query, each bounded by timeout, and
// returns one result per source. Failures never abort the batch; they come
// back with Succeeded false and a *FetchError.
func (e *Executor) RunTier(ctx context.Context, sources []Source, query string, timeout time.Duration) []Result {
	results := make([]Result, len(sources))

	var g errgroup.Group
	g.SetLimit(e.limit)

	for i, src := range sources {
		g.Go(func() error {
			results[i] = e.runOne(ctx, src, query, timeout)
			return nil
		})
	}
	g.Wait()

	return results
}

func (e *Executor) runOne(ctx context.Context, src Source, query string, timeout time.Duration) (res Result) {
	res.SourceID = src.ID()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Payload = nil
			res.Succeeded = false
			res.Err = &FetchError{SourceID: res.SourceID, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Elapsed = time.Since(start)
		res.ElapsedMs = res.Elapsed.Milliseconds()
	}()

	if err := ctx.Err(); err != nil {
		res.Err = &FetchError{SourceID: res.SourceID, Err: err}
		return res
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := src.Fetch(callCtx, query)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{SourceID: res.SourceID, Err: err}
		}
		res.Err = err
		return res
	}

	res.Payload = payload
	res.Succeeded = true
	return res
}

// Succeeded filters results down to the successful ones.
func Succeeded(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}
