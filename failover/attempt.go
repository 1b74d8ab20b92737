package failover

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/alternatefutures/package-cloud-sdk/observe"
)

type attemptResult[T any] struct {
	val      T
	err      error
	panicErr *PanicError
}

// runAttempt calls fn once against ep. When ep has a timeout, or ctx can be
// cancelled, the call is raced against the deadline: the first to settle wins
// and a late result is dropped on the floor.
func runAttempt[T any](ctx context.Context, exec *Executor, ep Endpoint, info observe.AttemptInfo, fn UnitOfWork[T]) (T, error) {
	var zero T

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if ep.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, ep.Timeout)
	}
	defer cancel()

	attemptCtx = observe.WithAttemptInfo(observe.WithoutTimelineCapture(attemptCtx), info)

	if attemptCtx.Done() == nil {
		return callInline(attemptCtx, exec.recoverPanics, ep.URL, fn)
	}

	// Buffered so an abandoned call can still deliver and exit.
	done := make(chan attemptResult[T], 1)
	go func() {
		var res attemptResult[T]
		defer func() {
			if r := recover(); r != nil {
				res = attemptResult[T]{panicErr: &PanicError{Endpoint: ep.URL, Value: r, Stack: debug.Stack()}}
			}
			done <- res
		}()
		res.val, res.err = fn(attemptCtx, ep.URL)
	}()

	select {
	case res := <-done:
		if res.panicErr != nil {
			if !exec.recoverPanics {
				panic(res.panicErr)
			}
			return zero, res.panicErr
		}
		if res.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, &TimeoutError{Timeout: ep.Timeout}
		}
		return res.val, res.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{Timeout: ep.Timeout}
	}
}

func callInline[T any](ctx context.Context, recoverPanics bool, endpoint string, fn UnitOfWork[T]) (val T, err error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				val = zero
				err = &PanicError{Endpoint: endpoint, Value: r, Stack: debug.Stack()}
			}
		}()
	}
	return fn(ctx, endpoint)
}
