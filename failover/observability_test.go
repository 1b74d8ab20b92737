package failover

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/alternatefutures/package-cloud-sdk/observe"
)

type testObserver struct {
	mu        sync.Mutex
	starts    int
	attempts  []observe.AttemptRecord
	failovers [][2]string
	successes []observe.Timeline
	failures  []observe.Timeline
}

func (o *testObserver) OnStart(context.Context, observe.Timeline) {
	o.mu.Lock()
	o.starts++
	o.mu.Unlock()
}

func (o *testObserver) OnAttempt(_ context.Context, rec observe.AttemptRecord) {
	o.mu.Lock()
	o.attempts = append(o.attempts, rec)
	o.mu.Unlock()
}

func (o *testObserver) OnFailover(_ context.Context, from, to string) {
	o.mu.Lock()
	o.failovers = append(o.failovers, [2]string{from, to})
	o.mu.Unlock()
}

func (o *testObserver) OnSuccess(_ context.Context, tl observe.Timeline) {
	o.mu.Lock()
	o.successes = append(o.successes, tl)
	o.mu.Unlock()
}

func (o *testObserver) OnFailure(_ context.Context, tl observe.Timeline) {
	o.mu.Lock()
	o.failures = append(o.failures, tl)
	o.mu.Unlock()
}

func TestExecute_ObserverCallbacks_Success(t *testing.T) {
	obs := &testObserver{}
	exec, _ := newTestExecutor(t, WithObserver(obs))
	cfg := Config{
		Endpoints:  []Endpoint{{URL: "a", Priority: 1}, {URL: "b", Priority: 2}},
		MaxRetries: 2,
	}

	var infos []observe.AttemptInfo
	ctx, capture := observe.RecordTimeline(context.Background())
	res, err := Execute(ctx, exec, cfg, func(ctx context.Context, ep string) (int, error) {
		info, ok := observe.AttemptFromContext(ctx)
		if !ok {
			t.Errorf("attempt info missing from context")
		}
		infos = append(infos, info)
		if _, nested := observe.TimelineCaptureFromContext(ctx); nested {
			t.Errorf("timeline capture leaked into attempt context")
		}
		if ep == "a" {
			return 0, errors.New("nope")
		}
		return 42, nil
	})
	if err != nil || res.Data != 42 {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	if obs.starts != 1 || len(obs.successes) != 1 || len(obs.failures) != 0 {
		t.Fatalf("starts=%d successes=%d failures=%d", obs.starts, len(obs.successes), len(obs.failures))
	}
	if len(obs.attempts) != 3 {
		t.Fatalf("attempts=%d, want 3", len(obs.attempts))
	}
	for i, rec := range obs.attempts {
		if rec.Attempt != i+1 {
			t.Fatalf("attempt[%d].Attempt=%d", i, rec.Attempt)
		}
		if infos[i].Attempt != rec.Attempt || infos[i].Endpoint != rec.Endpoint || infos[i].Retry != rec.Retry {
			t.Fatalf("info[%d]=%+v does not match record %+v", i, infos[i], rec)
		}
	}
	if want := [][2]string{{"a", "b"}}; !reflect.DeepEqual(obs.failovers, want) {
		t.Fatalf("failovers=%v, want %v", obs.failovers, want)
	}

	tl := capture.Timeline()
	if tl == nil {
		t.Fatalf("timeline not captured")
	}
	if tl.ID == "" || tl.ID != obs.successes[0].ID {
		t.Fatalf("timeline id=%q, observer id=%q", tl.ID, obs.successes[0].ID)
	}
	if tl.Endpoint != "b" || tl.FinalErr != nil {
		t.Fatalf("timeline endpoint=%q err=%v", tl.Endpoint, tl.FinalErr)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(tl.Tried(), want) {
		t.Fatalf("Tried()=%v, want %v", tl.Tried(), want)
	}
}

func TestExecute_ObserverCallbacks_Failure(t *testing.T) {
	obs := &testObserver{}
	exec, _ := newTestExecutor(t, WithObserver(observe.MultiObserver{Observers: []observe.Observer{obs, nil, observe.NoopObserver{}}}))
	cfg := Config{Endpoints: []Endpoint{{URL: "a", Timeout: 0}}, MaxRetries: 2}

	_, tl, err := ExecuteWithTimeline(context.Background(), exec, cfg, func(context.Context, string) (int, error) {
		return 0, errors.New("nope")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(obs.failures) != 1 || obs.failures[0].FinalErr != err {
		t.Fatalf("failures=%v", obs.failures)
	}
	if len(tl.Attempts) != 2 || tl.Attempts[0].Err == nil {
		t.Fatalf("timeline attempts=%+v", tl.Attempts)
	}
	var ae *AttemptError
	if !errors.As(tl.Attempts[1].Err, &ae) || ae.Attempt != 2 || ae.Retry != 1 {
		t.Fatalf("attempt err=%v", tl.Attempts[1].Err)
	}
	if tl.Endpoint != "" {
		t.Fatalf("failed timeline has endpoint %q", tl.Endpoint)
	}
}

func TestDo_UsesDefaultExecutor(t *testing.T) {
	res, err := Do(context.Background(), Config{Endpoints: []Endpoint{{URL: "a"}}}, func(_ context.Context, ep string) (string, error) {
		return ep, nil
	})
	if err != nil || res.Data != "a" || res.Attempts != 1 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if DefaultExecutor() == nil {
		t.Fatalf("default executor is nil")
	}
	SetGlobal(NewExecutor()) // ignored after initialization
}
