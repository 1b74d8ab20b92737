package observe

import "context"

// NoopObserver implements Observer with no-op methods.
type NoopObserver struct{}

func (NoopObserver) OnStart(context.Context, Timeline)          {}
func (NoopObserver) OnAttempt(context.Context, AttemptRecord)   {}
func (NoopObserver) OnFailover(context.Context, string, string) {}
func (NoopObserver) OnSuccess(context.Context, Timeline)        {}
func (NoopObserver) OnFailure(context.Context, Timeline)        {}
