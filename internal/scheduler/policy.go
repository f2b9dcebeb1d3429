package scheduler

import (
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	syncdomain "threegen/internal/domain/sync"
)

type Result int

const (
	ResultSuccess Result = iota
	ResultRetry
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultRetry:
		return "retry"
	case ResultFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Classifier maps a job error to a result code.
type Classifier func(err error) Result

// ClassifySyncError retries everything except failures that need user
// action: a missing sign-in, a permission problem or a malformed document.
func ClassifySyncError(err error) Result {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, syncdomain.ErrNotAuthenticated),
		errors.Is(err, syncdomain.ErrPermissionDenied),
		errors.Is(err, syncdomain.ErrInvalidDocument):
		return ResultFailure
	default:
		return ResultRetry
	}
}

type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// NewBackOff starts a retry sequence for one job. Delays double from
// BaseDelay up to MaxDelay without jitter; after MaxAttempts failed attempts
// it returns backoff.Stop. MaxAttempts <= 0 retries forever.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	if p.MaxAttempts == 1 {
		return &backoff.StopBackOff{}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = time.Duration(math.MaxInt64)
	}
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	if p.MaxAttempts <= 0 {
		return exp
	}
	return backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1))
}
