package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Action is a unit of scheduled work. Errors are logged and swallowed at the
// job boundary; they never reach the tick loop.
type Action func(ctx context.Context) error

// Job pairs a trigger with an action. A busy flag blocks reentrant firing if
// an action ever runs past its own minute.
type Job struct {
	Name    string
	Trigger Trigger
	Action  Action

	busy atomic.Bool

	mu        sync.Mutex
	lastFired time.Time
	lastError string
}

// JobStatus is a read-only snapshot of a job for the status API.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	NextFire  time.Time `json:"next_fire"`
	LastFired time.Time `json:"last_fired,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Busy      bool      `json:"busy"`
}

// RunFunc observes every completed firing (err is nil on success).
type RunFunc func(jobName string, firedAt time.Time, err error)

// Scheduler evaluates every registered job against the wall clock once per
// minute. Jobs are independent: a failing or panicking action aborts only its
// own occurrence.
type Scheduler struct {
	log   *zap.SugaredLogger
	clock func() time.Time
	onRun RunFunc

	mu   sync.Mutex
	jobs []*Job

	wg sync.WaitGroup
}

type Option func(*Scheduler)

// WithClock substitutes the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithRunFunc registers a callback invoked after every firing.
func WithRunFunc(fn RunFunc) Option {
	return func(s *Scheduler) { s.onRun = fn }
}

func New(log *zap.SugaredLogger, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:   log,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. Call before Run.
func (s *Scheduler) Add(name string, trigger Trigger, action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &Job{Name: name, Trigger: trigger, Action: action})
}

// Run ticks once per minute until ctx is cancelled, then waits for in-flight
// actions to finish. Occurrences that pass while the process is down are
// skipped, not replayed.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infow("scheduler started", "jobs", len(s.jobs))

	// Align the first tick to the next minute boundary so predicates see each
	// wall-clock minute exactly once.
	now := s.clock()
	wait := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.Tick(ctx, s.clock())
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx, s.clock())
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return
		}
	}
}

// Tick evaluates every job's trigger against now and fires the matches.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, job := range jobs {
		if !job.Trigger.Matches(now) {
			continue
		}
		if !job.busy.CompareAndSwap(false, true) {
			s.log.Warnw("job still running, skipping occurrence", "job", job.Name, "at", now)
			continue
		}
		s.wg.Add(1)
		go s.fire(ctx, job, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, job *Job, firedAt time.Time) {
	defer s.wg.Done()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{job: job.Name, value: r}
			}
		}()
		err = job.Action(ctx)
	}()

	job.mu.Lock()
	job.lastFired = firedAt
	job.lastError = ""
	if err != nil {
		job.lastError = err.Error()
	}
	job.mu.Unlock()

	if err != nil {
		s.log.Errorw("job failed", "job", job.Name, "at", firedAt, "error", err)
	} else {
		s.log.Infow("job completed", "job", job.Name, "at", firedAt)
	}

	// Release before notifying so observers see the job idle again.
	job.busy.Store(false)

	if s.onRun != nil {
		s.onRun(job.Name, firedAt, err)
	}
}

// Jobs returns a snapshot of all registered jobs.
func (s *Scheduler) Jobs() []JobStatus {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		job.mu.Lock()
		statuses = append(statuses, JobStatus{
			Name:      job.Name,
			Schedule:  job.Trigger.String(),
			NextFire:  job.Trigger.Next(now),
			LastFired: job.lastFired,
			LastError: job.lastError,
			Busy:      job.busy.Load(),
		})
		job.mu.Unlock()
	}
	return statuses
}

type panicError struct {
	job   string
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in job %s: %v", e.job, e.value)
}
