package failover

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidConfig matches every *ConfigurationError.
	ErrInvalidConfig = errors.New("failover: invalid configuration")

	// ErrAllEndpointsFailed matches every *AggregateFailureError.
	ErrAllEndpointsFailed = errors.New("failover: all endpoints failed")

	// ErrTimeout matches attempt errors caused by an endpoint timeout.
	ErrTimeout = errors.New("failover: attempt timed out")
)

// ConfigurationError is returned before any attempt when the invocation is malformed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	if e == nil || e.Err == nil {
		return ErrInvalidConfig.Error()
	}
	return ErrInvalidConfig.Error() + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Problems lists the individual validation failures.
func (e *ConfigurationError) Problems() []error {
	if e == nil || e.Err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(e.Err, &merr) {
		return merr.WrappedErrors()
	}
	return []error{e.Err}
}

// TimeoutError reports that an attempt did not settle within the endpoint timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// AttemptError is the failure of a single attempt. It is what FailureFunc receives.
type AttemptError struct {
	Endpoint string
	// Attempt is the 1-based attempt number across the whole invocation.
	Attempt int
	// Retry is the 0-based retry index on Endpoint.
	Retry int
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("failover: attempt %d against %s: %v", e.Attempt, e.Endpoint, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// AggregateFailureError is returned once every endpoint and retry has failed.
type AggregateFailureError struct {
	// Endpoints lists each endpoint tried, in try order, once per endpoint.
	Endpoints []string
	Attempts  int
	// Cause is the underlying error of the most recent attempt.
	Cause error
}

func (e *AggregateFailureError) Error() string {
	msg := fmt.Sprintf("failover: all endpoints failed after %d attempts", e.Attempts)
	if e.Cause != nil {
		msg += ": last error: " + e.Cause.Error()
	}
	return msg
}

func (e *AggregateFailureError) Unwrap() error { return e.Cause }

func (e *AggregateFailureError) Is(target error) bool {
	return target == ErrAllEndpointsFailed
}

// CancelledError is returned when ctx is done before the invocation settles.
type CancelledError struct {
	// Endpoints lists the endpoints tried before cancellation, in try order.
	Endpoints []string
	Attempts  int
	Err       error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("failover: cancelled after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// PanicError carries a panic recovered from a unit of work when panic recovery is enabled.
type PanicError struct {
	Endpoint string
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("failover: panic in unit of work for %s: %v", e.Endpoint, e.Value)
}
