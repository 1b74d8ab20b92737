package failover

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/alternatefutures/package-cloud-sdk/internal"
	"github.com/alternatefutures/package-cloud-sdk/observe"
)

// UnitOfWork performs one call against endpoint. The executor assumes it is safe to
// retry; idempotency is the caller's responsibility.
//
// ctx is cancelled when the endpoint timeout expires or the invocation is cancelled.
// Work that ignores ctx keeps running after the executor has moved on.
type UnitOfWork[T any] func(ctx context.Context, endpoint string) (T, error)

// Result is the outcome of a successful invocation.
type Result[T any] struct {
	Data T
	// Endpoint is the URL of the endpoint that produced Data.
	Endpoint string
	// Attempts counts every attempt made, across all endpoints, including the successful one.
	Attempts int
}

// Executor runs units of work against ranked endpoints.
//
// An Executor holds no per-invocation state and is safe for concurrent use.
type Executor struct {
	observer      observe.Observer
	logger        hclog.Logger
	clock         func() time.Time
	sleep         func(context.Context, time.Duration) error
	newID         func() string
	recoverPanics bool
}

type executorConfig struct {
	opts ExecutorOptions
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Observer      observe.Observer
	Logger        hclog.Logger
	Clock         func() time.Time
	RecoverPanics bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// WithObserver sets the observer.
func WithObserver(o observe.Observer) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Logger = l
	}
}

// WithClock sets the clock function.
func WithClock(f func() time.Time) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Clock = f
	}
}

// WithRecoverPanics sets whether a panicking unit of work counts as a failed attempt
// (*PanicError) instead of crashing the caller.
func WithRecoverPanics(recover bool) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.RecoverPanics = recover
	}
}

// NewExecutor creates an Executor with default options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	cfg := &executorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return NewExecutorFromOptions(cfg.opts)
}

// NewExecutorFromOptions creates an Executor from a config struct.
func NewExecutorFromOptions(opts ExecutorOptions) *Executor {
	e := &Executor{
		observer:      opts.Observer,
		logger:        opts.Logger,
		clock:         opts.Clock,
		recoverPanics: opts.RecoverPanics,
	}

	if internal.IsTypedNil(e.observer) {
		e.observer = observe.NoopObserver{}
	}
	if internal.IsTypedNil(e.logger) {
		e.logger = hclog.NewNullLogger()
	}
	e.logger = e.logger.Named("failover")
	if e.clock == nil {
		e.clock = time.Now
	}
	e.sleep = sleepWithContext
	e.newID = uuid.NewString

	return e
}

// Execute runs fn against the endpoints of cfg in priority order until one succeeds.
//
// It returns *ConfigurationError before any attempt if cfg is invalid,
// *AggregateFailureError once every endpoint and retry has failed, and
// *CancelledError if ctx is done first.
func Execute[T any](ctx context.Context, exec *Executor, cfg Config, fn UnitOfWork[T]) (Result[T], error) {
	res, _, err := ExecuteWithTimeline(ctx, exec, cfg, fn)
	return res, err
}

// ExecuteWithTimeline is Execute that also returns the invocation's Timeline.
func ExecuteWithTimeline[T any](ctx context.Context, exec *Executor, cfg Config, fn UnitOfWork[T]) (Result[T], observe.Timeline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if exec == nil {
		exec = DefaultExecutor()
	} else if exec.observer == nil || exec.logger == nil || exec.clock == nil || exec.sleep == nil || exec.newID == nil {
		exec = NewExecutorFromOptions(ExecutorOptions{
			Observer:      exec.observer,
			Logger:        exec.logger,
			Clock:         exec.clock,
			RecoverPanics: exec.recoverPanics,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Result[T]{}, observe.Timeline{FinalErr: err}, err
	}
	if fn == nil {
		err := &ConfigurationError{Err: errors.New("unit of work is required")}
		return Result[T]{}, observe.Timeline{FinalErr: err}, err
	}

	capture, _ := observe.TimelineCaptureFromContext(ctx)
	res, tl, err := execute(ctx, exec, cfg, fn)
	if capture != nil {
		observe.StoreTimelineCapture(capture, tl)
	}
	return res, tl, err
}

func execute[T any](ctx context.Context, exec *Executor, cfg Config, fn UnitOfWork[T]) (Result[T], observe.Timeline, error) {
	endpoints := SortEndpoints(cfg.Endpoints)
	maxRetries := cfg.maxRetries()

	tl := observe.Timeline{
		ID:        exec.newID(),
		Endpoints: endpointURLs(endpoints),
		Start:     exec.clock(),
		Attempts:  make([]observe.AttemptRecord, 0, len(endpoints)*maxRetries),
	}
	exec.observer.OnStart(ctx, tl)

	tried := make([]string, 0, len(endpoints))
	total := 0
	var lastErr error
	current := ""
	attempting := false

	// A panic escaping the unit of work still closes the invocation for
	// observers before it propagates.
	defer func() {
		if !attempting {
			return
		}
		r := recover()
		if r == nil {
			return
		}
		perr, ok := r.(*PanicError)
		if !ok {
			perr = &PanicError{Endpoint: current, Value: r, Stack: debug.Stack()}
		}
		tl.End = exec.clock()
		tl.FinalErr = perr
		exec.logger.Error("unit of work panicked", "invocation_id", tl.ID, "endpoint", current, "panic", perr.Value)
		exec.observer.OnFailure(ctx, tl)
		panic(r)
	}()

	cancelled := func(err error) (Result[T], observe.Timeline, error) {
		cerr := &CancelledError{Endpoints: tried, Attempts: total, Err: err}
		tl.End = exec.clock()
		tl.FinalErr = cerr
		exec.logger.Debug("invocation cancelled", "invocation_id", tl.ID, "attempts", total, "error", err)
		exec.observer.OnFailure(ctx, tl)
		return Result[T]{}, tl, cerr
	}

	for i, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		if i > 0 {
			exec.logger.Debug("failing over", "invocation_id", tl.ID, "from", endpoints[i-1].URL, "to", ep.URL)
			exec.observer.OnFailover(ctx, endpoints[i-1].URL, ep.URL)
		}
		tried = append(tried, ep.URL)
		current = ep.URL
		schedule := cfg.newBackoff()

		for retry := 0; retry < maxRetries; retry++ {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}

			total++
			rec := observe.AttemptRecord{
				InvocationID: tl.ID,
				Endpoint:     ep.URL,
				Attempt:      total,
				Retry:        retry,
				StartTime:    exec.clock(),
			}
			info := observe.AttemptInfo{
				InvocationID: tl.ID,
				Endpoint:     ep.URL,
				Attempt:      total,
				Retry:        retry,
			}

			attempting = true
			val, err := runAttempt(ctx, exec, ep, info, fn)
			attempting = false
			rec.EndTime = exec.clock()

			if err == nil {
				tl.Attempts = append(tl.Attempts, rec)
				exec.observer.OnAttempt(ctx, rec)
				tl.End = exec.clock()
				tl.Endpoint = ep.URL
				exec.logger.Debug("attempt succeeded", "invocation_id", tl.ID, "endpoint", ep.URL, "attempts", total)
				exec.observer.OnSuccess(ctx, tl)
				return Result[T]{Data: val, Endpoint: ep.URL, Attempts: total}, tl, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				rec.Err = err
				tl.Attempts = append(tl.Attempts, rec)
				exec.observer.OnAttempt(ctx, rec)
				return cancelled(ctxErr)
			}

			attemptErr := &AttemptError{Endpoint: ep.URL, Attempt: total, Retry: retry, Err: err}
			lastErr = err
			rec.Err = attemptErr
			rec.Timeout = errors.Is(err, ErrTimeout)
			exec.logger.Debug("attempt failed", "invocation_id", tl.ID, "endpoint", ep.URL, "attempt", total, "error", err)
			exec.notifyFailure(cfg.OnFailover, ep.URL, attemptErr)

			if retry == maxRetries-1 {
				tl.Attempts = append(tl.Attempts, rec)
				exec.observer.OnAttempt(ctx, rec)
				break
			}

			delay := schedule.NextBackOff()
			if delay == backoff.Stop {
				tl.Attempts = append(tl.Attempts, rec)
				exec.observer.OnAttempt(ctx, rec)
				break
			}
			rec.Delay = delay
			tl.Attempts = append(tl.Attempts, rec)
			exec.observer.OnAttempt(ctx, rec)

			if err := exec.sleep(ctx, delay); err != nil {
				return cancelled(err)
			}
		}
	}

	ferr := &AggregateFailureError{Endpoints: tried, Attempts: total, Cause: lastErr}
	tl.End = exec.clock()
	tl.FinalErr = ferr
	exec.logger.Debug("all endpoints failed", "invocation_id", tl.ID, "attempts", total, "error", lastErr)
	exec.observer.OnFailure(ctx, tl)
	return Result[T]{}, tl, ferr
}

// notifyFailure calls fn, swallowing any panic so the loop continues unchanged.
func (e *Executor) notifyFailure(fn FailureFunc, endpoint string, err error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("failure callback panicked", "endpoint", endpoint, "panic", r)
		}
	}()
	fn(endpoint, err)
}

func endpointURLs(endpoints []Endpoint) []string {
	urls := make([]string, len(endpoints))
	for i, ep := range endpoints {
		urls[i] = ep.URL
	}
	return urls
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
