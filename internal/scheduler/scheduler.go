package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"threegen/pkg/logger"
)

type Kind string

const (
	KindPush Kind = "push"
	KindPull Kind = "pull"
)

// ExistingPolicy decides what happens when a trigger arrives while a job of
// the same kind is already pending.
type ExistingPolicy int

const (
	// EnqueueKeep drops the new trigger. Used for periodic runs.
	EnqueueKeep ExistingPolicy = iota
	// EnqueueReplace swaps the pending job for the new one and resets its
	// retry budget. Used for explicit triggers.
	EnqueueReplace
)

type Request struct {
	Kind     Kind
	Reason   string
	FirstRun bool
}

type Job func(ctx context.Context, request Request) error

type Config struct {
	PeriodicInterval       time.Duration
	ConstraintPollInterval time.Duration
	RunTimeout             time.Duration
	Retry                  RetryPolicy
}

type pendingJob struct {
	request   Request
	attempt   int
	notBefore time.Time
	// retry is nil until the first failed attempt.
	retry    backoff.BackOff
	explicit bool
}

// Scheduler runs registered jobs on a single worker, so two jobs never run
// at the same time. Enqueue never blocks.
type Scheduler struct {
	log         logger.Logger
	config      Config
	constraints Constraints
	notifier    Notifier
	classify    Classifier
	now         func() time.Time

	mu      sync.Mutex
	jobs    map[Kind]Job
	order   []Kind
	pending map[Kind]*pendingJob
	running bool
	wake    chan struct{}
}

func New(config Config, constraints Constraints, notifier Notifier, log logger.Logger) *Scheduler {
	if constraints == nil {
		constraints = All()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	if config.ConstraintPollInterval <= 0 {
		config.ConstraintPollInterval = time.Minute
	}

	return &Scheduler{
		log:         log,
		config:      config,
		constraints: constraints,
		notifier:    notifier,
		classify:    ClassifySyncError,
		now:         time.Now,
		jobs:        make(map[Kind]Job),
		pending:     make(map[Kind]*pendingJob),
		wake:        make(chan struct{}, 1),
	}
}

// Register adds a job kind. Periodic ticks trigger kinds in registration order.
func (s *Scheduler) Register(kind Kind, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[kind]; !exists {
		s.order = append(s.order, kind)
	}
	s.jobs[kind] = job
}

// Enqueue schedules a run of request.Kind as soon as the worker is free.
// It reports whether the trigger was accepted.
func (s *Scheduler) Enqueue(request Request, policy ExistingPolicy) bool {
	s.mu.Lock()
	if _, registered := s.jobs[request.Kind]; !registered {
		s.mu.Unlock()
		s.log.Warn("scheduler: unknown job kind", "kind", string(request.Kind))
		return false
	}
	if _, exists := s.pending[request.Kind]; exists && policy == EnqueueKeep {
		s.mu.Unlock()
		s.log.Debug("scheduler: trigger dropped, job already pending", "kind", string(request.Kind), "reason", request.Reason)
		return false
	}
	s.pending[request.Kind] = &pendingJob{
		request:   request,
		notBefore: s.now(),
		explicit:  policy == EnqueueReplace,
	}
	s.mu.Unlock()

	s.signal()
	return true
}

// EnqueueAll triggers every registered kind in registration order.
func (s *Scheduler) EnqueueAll(reason string, firstRun bool, policy ExistingPolicy) {
	s.mu.Lock()
	kinds := append([]Kind(nil), s.order...)
	s.mu.Unlock()

	for _, kind := range kinds {
		s.Enqueue(Request{Kind: kind, Reason: reason, FirstRun: firstRun}, policy)
	}
}

// Pending returns the number of queued jobs, including those waiting for a retry.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run processes jobs until ctx is cancelled. Cancelling ctx also cancels the
// running job.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var tick <-chan time.Time
	if s.config.PeriodicInterval > 0 {
		ticker := time.NewTicker(s.config.PeriodicInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.log.Info("scheduler: started", "periodic_interval", s.config.PeriodicInterval.String())

	for {
		job, wait := s.next()
		if job != nil {
			s.execute(ctx, job)
			if err := ctx.Err(); err != nil {
				s.log.Info("scheduler: stopped")
				return nil
			}
			continue
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if wait > 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			s.log.Info("scheduler: stopped")
			return nil
		case <-s.wake:
		case <-tick:
			s.EnqueueAll("periodic", false, EnqueueKeep)
		case <-fire:
		}
		stopTimer(timer)
	}
}

// next pops the due job with the earliest start time, in registration order
// on ties. With nothing due it returns the wait until the earliest pending
// job, or zero when the queue is empty.
func (s *Scheduler) next() (*pendingJob, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var chosen *pendingJob
	for _, kind := range s.order {
		job, ok := s.pending[kind]
		if !ok {
			continue
		}
		if chosen == nil || job.notBefore.Before(chosen.notBefore) {
			chosen = job
		}
	}
	if chosen == nil {
		return nil, 0
	}
	if wait := chosen.notBefore.Sub(now); wait > 0 {
		return nil, wait
	}

	delete(s.pending, chosen.request.Kind)
	return chosen, 0
}

func (s *Scheduler) execute(ctx context.Context, job *pendingJob) {
	request := job.request

	if err := s.constraints.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		delay := s.config.ConstraintPollInterval
		s.requeue(job, job.attempt, job.retry, delay)
		s.notifier.Notify(Event{
			Kind:     request.Kind,
			Reason:   request.Reason,
			Attempt:  job.attempt,
			Err:      err,
			Deferred: true,
			NextRun:  delay,
		})
		return
	}

	s.mu.Lock()
	run := s.jobs[request.Kind]
	s.mu.Unlock()

	attempt := job.attempt + 1
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.config.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
	}

	started := s.now()
	err := safeRun(runCtx, run, request)
	cancel()
	elapsed := s.now().Sub(started)

	if ctx.Err() != nil {
		s.log.Info("scheduler: job cancelled", "kind", string(request.Kind), "attempt", attempt)
		return
	}

	event := Event{
		Kind:     request.Kind,
		Reason:   request.Reason,
		Attempt:  attempt,
		Result:   s.classify(err),
		Err:      err,
		Duration: elapsed,
	}

	if event.Result == ResultRetry {
		retry := job.retry
		if retry == nil {
			retry = s.config.Retry.NewBackOff()
		}
		if delay := retry.NextBackOff(); delay == backoff.Stop {
			event.Result = ResultFailure
			event.Err = fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		} else {
			event.NextRun = delay
			s.requeue(job, attempt, retry, delay)
		}
	}

	s.notifier.Notify(event)
}

// requeue puts a job back. An explicit trigger that arrived while the job
// ran wins with a fresh budget; a Keep trigger is absorbed by the retry.
func (s *Scheduler) requeue(job *pendingJob, attempt int, retry backoff.BackOff, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pending[job.request.Kind]; ok && existing.explicit {
		return
	}
	s.pending[job.request.Kind] = &pendingJob{
		request:   job.request,
		attempt:   attempt,
		notBefore: s.now().Add(delay),
		retry:     retry,
		explicit:  job.explicit,
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func safeRun(ctx context.Context, job Job, request Request) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("job %s panicked: %v", request.Kind, recovered)
		}
	}()
	return job(ctx, request)
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
