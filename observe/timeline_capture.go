package observe

import (
	"context"
	"sync/atomic"
)

// TimelineCapture receives the finished Timeline of the next failover invocation
// made with the context returned by RecordTimeline.
type TimelineCapture struct {
	tl atomic.Pointer[Timeline]
}

// Timeline returns the captured timeline, or nil while the invocation is still running.
func (c *TimelineCapture) Timeline() *Timeline {
	if c == nil {
		return nil
	}
	return c.tl.Load()
}

type timelineCaptureKey struct{}

type suppressedCapture struct{}

// RecordTimeline returns a context that asks the executor to publish its timeline into
// the returned capture.
func RecordTimeline(ctx context.Context) (context.Context, *TimelineCapture) {
	if ctx == nil {
		ctx = context.Background()
	}
	capture := &TimelineCapture{}
	return context.WithValue(ctx, timelineCaptureKey{}, capture), capture
}

// TimelineCaptureFromContext returns the capture requested on ctx, if any.
func TimelineCaptureFromContext(ctx context.Context) (*TimelineCapture, bool) {
	if ctx == nil {
		return nil, false
	}
	capture, ok := ctx.Value(timelineCaptureKey{}).(*TimelineCapture)
	return capture, ok && capture != nil
}

// WithoutTimelineCapture hides any capture on ctx from nested invocations.
// The executor applies it to every attempt context.
func WithoutTimelineCapture(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, timelineCaptureKey{}, suppressedCapture{})
}

// StoreTimelineCapture publishes tl into capture.
func StoreTimelineCapture(capture *TimelineCapture, tl Timeline) {
	if capture == nil {
		return
	}
	capture.tl.Store(&tl)
}
