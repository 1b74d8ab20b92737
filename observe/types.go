package observe

import (
	"context"
	"time"
)

// AttemptRecord describes a single attempt against one endpoint.
type AttemptRecord struct {
	InvocationID string
	Endpoint     string

	// Attempt is the 1-based attempt number across the whole invocation.
	Attempt int
	// Retry is the 0-based retry index on Endpoint.
	Retry int

	StartTime time.Time
	EndTime   time.Time

	Err     error
	Timeout bool

	// Delay is the wait scheduled after this attempt before the next retry on the same endpoint.
	Delay time.Duration
}

// Duration returns how long the attempt ran.
func (r AttemptRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Timeline is the structured record of a single invocation and all of its attempts.
type Timeline struct {
	ID string

	// Endpoints is the full candidate list in try order.
	Endpoints []string

	Start time.Time
	End   time.Time

	Attempts []AttemptRecord

	// Endpoint is the endpoint that produced the result, empty on failure.
	Endpoint string
	FinalErr error
}

// Tried returns the endpoints actually attempted, once per endpoint, in try order.
func (tl Timeline) Tried() []string {
	var out []string
	for _, rec := range tl.Attempts {
		if rec.Retry == 0 {
			out = append(out, rec.Endpoint)
		}
	}
	return out
}

// Observer receives lifecycle callbacks for a single invocation.
//
// Callbacks run synchronously on the invocation's goroutine.
type Observer interface {
	OnStart(ctx context.Context, tl Timeline)
	OnAttempt(ctx context.Context, rec AttemptRecord)
	OnFailover(ctx context.Context, from, to string)
	OnSuccess(ctx context.Context, tl Timeline)
	OnFailure(ctx context.Context, tl Timeline)
}
