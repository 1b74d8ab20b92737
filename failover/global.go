package failover

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	globalExec *Executor
	globalOnce sync.Once
	globalMu   sync.Mutex
)

// DefaultExecutor returns the shared, lazily-initialized executor used by Do
// and by Execute when given a nil executor.
func DefaultExecutor() *Executor {
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalExec == nil {
			globalExec = NewExecutor()
		}
	})
	return globalExec
}

// SetGlobal replaces the default executor. It must be called at startup, before
// DefaultExecutor is first used; later calls log a warning and are ignored.
func SetGlobal(exec *Executor) {
	if exec == nil {
		return
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalExec != nil {
		hclog.Default().Warn("failover: SetGlobal called after default executor was initialized; ignoring")
		return
	}
	globalExec = exec
}

// Do runs fn against cfg using the default executor.
func Do[T any](ctx context.Context, cfg Config, fn UnitOfWork[T]) (Result[T], error) {
	return Execute(ctx, DefaultExecutor(), cfg, fn)
}
