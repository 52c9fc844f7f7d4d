package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/pkg/trace"
)

// collect runs fn under its own deadline and span. It returns when fn does or
// when the deadline passes, whichever is first; a late fn result is discarded.
func collect[T any](ctx context.Context, metrics domrepo.Metrics, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ctx, span := trace.StartSpan(ctx, "collector."+name)
	start := time.Now()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%s collector panic: %v", name, r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	// a provider may swallow the deadline and report its own error
	if res.err != nil && ctx.Err() != nil && !errors.Is(res.err, ctx.Err()) {
		res.err = fmt.Errorf("%w: %w", ctx.Err(), res.err)
	}

	metrics.RecordLatency("collector_"+name, time.Since(start).Seconds())
	metrics.RecordCollector(name, outcome(res.err))
	trace.End(span, res.err)
	return res.v, res.err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, domrepo.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
