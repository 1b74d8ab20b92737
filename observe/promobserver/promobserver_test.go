package promobserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

func TestObserver_RecordsInvocation(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := New(reg, "")
	require.NoError(t, err)

	exec := failover.NewExecutor(failover.WithObserver(obs))
	cfg := failover.Config{
		Endpoints: []failover.Endpoint{
			{URL: "primary", Priority: 1, Timeout: 20 * time.Millisecond},
			{URL: "backup", Priority: 2},
		},
		MaxRetries: 2,
	}

	res, err := failover.Execute(context.Background(), exec, cfg, func(ctx context.Context, ep string) (string, error) {
		if ep == "primary" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "backup", res.Endpoint)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.attempts.WithLabelValues("primary", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.attempts.WithLabelValues("backup", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.failovers.WithLabelValues("primary", "backup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.invocations.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(obs.attemptDuration))
}

func TestObserver_FailureAndCancellation(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := New(reg, "test")
	require.NoError(t, err)
	exec := failover.NewExecutor(failover.WithObserver(obs))
	cfg := failover.Config{Endpoints: []failover.Endpoint{{URL: "a"}}}

	_, err = failover.Execute(context.Background(), exec, cfg, func(context.Context, string) (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = failover.Execute(ctx, exec, cfg, func(context.Context, string) (int, error) {
		return 1, nil
	})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.invocations.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.invocations.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.attempts.WithLabelValues("a", OutcomeError)))

	n, err := testutil.GatherAndCount(reg, "test_failover_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)
	_, err = New(reg, "dup")
	assert.Error(t, err)
}
