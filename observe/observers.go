package observe

import (
	"context"

	"github.com/alternatefutures/package-cloud-sdk/internal"
)

// BaseObserver implements Observer with no-op methods.
//
// Users can embed BaseObserver to implement only the callbacks they need.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, Timeline)          {}
func (BaseObserver) OnAttempt(context.Context, AttemptRecord)   {}
func (BaseObserver) OnFailover(context.Context, string, string) {}
func (BaseObserver) OnSuccess(context.Context, Timeline)        {}
func (BaseObserver) OnFailure(context.Context, Timeline)        {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	Observers []Observer
}

func (m MultiObserver) OnStart(ctx context.Context, tl Timeline) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			o.OnStart(ctx, tl)
		}
	}
}

func (m MultiObserver) OnAttempt(ctx context.Context, rec AttemptRecord) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			o.OnAttempt(ctx, rec)
		}
	}
}

func (m MultiObserver) OnFailover(ctx context.Context, from, to string) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			o.OnFailover(ctx, from, to)
		}
	}
}

func (m MultiObserver) OnSuccess(ctx context.Context, tl Timeline) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			o.OnSuccess(ctx, tl)
		}
	}
}

func (m MultiObserver) OnFailure(ctx context.Context, tl Timeline) {
	for _, o := range m.Observers {
		if !internal.IsTypedNil(o) {
			o.OnFailure(ctx, tl)
		}
	}
}
