package observe

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// LogObserver writes invocation events to an hclog.Logger.
//
// Failed attempts and failovers are logged at Warn, the final failure at Error,
// everything else at Debug.
type LogObserver struct {
	Logger hclog.Logger
}

// NewLogObserver returns a LogObserver writing to logger, or a null logger if nil.
func NewLogObserver(logger hclog.Logger) *LogObserver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) log() hclog.Logger {
	if o == nil || o.Logger == nil {
		return hclog.NewNullLogger()
	}
	return o.Logger
}

func (o *LogObserver) OnStart(_ context.Context, tl Timeline) {
	o.log().Debug("failover invocation started",
		"invocation_id", tl.ID,
		"endpoints", tl.Endpoints,
	)
}

func (o *LogObserver) OnAttempt(_ context.Context, rec AttemptRecord) {
	if rec.Err == nil {
		o.log().Debug("attempt succeeded",
			"invocation_id", rec.InvocationID,
			"endpoint", rec.Endpoint,
			"attempt", rec.Attempt,
			"duration", rec.Duration(),
		)
		return
	}
	o.log().Warn("attempt failed",
		"invocation_id", rec.InvocationID,
		"endpoint", rec.Endpoint,
		"attempt", rec.Attempt,
		"retry", rec.Retry,
		"timeout", rec.Timeout,
		"error", rec.Err,
	)
}

func (o *LogObserver) OnFailover(_ context.Context, from, to string) {
	o.log().Warn("endpoint exhausted, failing over", "from", from, "to", to)
}

func (o *LogObserver) OnSuccess(_ context.Context, tl Timeline) {
	o.log().Debug("failover invocation succeeded",
		"invocation_id", tl.ID,
		"endpoint", tl.Endpoint,
		"attempts", len(tl.Attempts),
		"duration", tl.End.Sub(tl.Start),
	)
}

func (o *LogObserver) OnFailure(_ context.Context, tl Timeline) {
	o.log().Error("failover invocation failed",
		"invocation_id", tl.ID,
		"attempts", len(tl.Attempts),
		"error", tl.FinalErr,
	)
}
