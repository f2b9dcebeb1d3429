package scheduler

import (
	"time"

	"threegen/pkg/logger"
)

type Event struct {
	Kind     Kind
	Reason   string
	Attempt  int
	Result   Result
	Err      error
	Deferred bool
	NextRun  time.Duration
	Duration time.Duration
}

// Notifier receives passive status updates. Implementations must not block.
type Notifier interface {
	Notify(event Event)
}

type NotifierFunc func(event Event)

func (f NotifierFunc) Notify(event Event) {
	f(event)
}

type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(event Event) {
	attrs := []any{
		"kind", string(event.Kind),
		"reason", event.Reason,
		"attempt", event.Attempt,
	}

	switch {
	case event.Deferred:
		n.log.Info("scheduler: job deferred", append(attrs, "constraint", event.Err.Error(), "retry_in", event.NextRun.String())...)
	case event.Result == ResultSuccess:
		n.log.Info("scheduler: job completed", append(attrs, "duration", event.Duration.String())...)
	case event.Result == ResultRetry:
		n.log.BusinessError("scheduler: job failed, retrying", event.Err, append(attrs, "retry_in", event.NextRun.String())...)
	default:
		n.log.BusinessError("scheduler: job failed", event.Err, attrs...)
	}
}
