// Package scheduler is a durable deferred-job queue backed by the database.
// Job ids are deterministic, so duplicate scheduling requests collapse into a
// single pending row; delivery is at-least-once and handlers must re-read
// current state before acting.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/rs/zerolog/log"
)

// HandlerFunc executes one job. Returning an error triggers a backoff retry
// until the job's attempt budget is spent.
type HandlerFunc func(ctx context.Context, payload string) error

type kindConfig struct {
	handler HandlerFunc
	// slots bounds concurrent executions for this kind.
	slots chan struct{}
}

type Scheduler struct {
	jobs        repository.JobRepository
	handlers    map[string]kindConfig
	interval    time.Duration
	baseBackoff time.Duration
	// visibility bounds how long a claimed job may sit in running before it
	// is handed back to pending. Handlers are idempotent, so a slow handler
	// that outlives the window only costs a duplicate delivery.
	visibility time.Duration
	batchSize  int
	stop       chan struct{}
	done       chan struct{}
}

type Option func(*Scheduler)

func WithPollInterval(d time.Duration) Option      { return func(s *Scheduler) { s.interval = d } }
func WithBaseBackoff(d time.Duration) Option       { return func(s *Scheduler) { s.baseBackoff = d } }
func WithVisibilityTimeout(d time.Duration) Option { return func(s *Scheduler) { s.visibility = d } }

func NewScheduler(jobs repository.JobRepository, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:        jobs,
		handlers:    make(map[string]kindConfig),
		interval:    time.Second,
		baseBackoff: 5 * time.Second,
		visibility:  5 * time.Minute,
		batchSize:   50,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs the handler for a job kind with the given worker-pool
// size. Must be called before Start.
func (s *Scheduler) Register(kind string, concurrency int, h HandlerFunc) {
	if concurrency < 1 {
		concurrency = 1
	}
	s.handlers[kind] = kindConfig{handler: h, slots: make(chan struct{}, concurrency)}
}

// Enqueue inserts a job with a deterministic id; a duplicate id is absorbed
// with no effect.
func (s *Scheduler) Enqueue(id, kind, payload string, runAt time.Time, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	_, err := s.jobs.EnqueueIgnore(&model.ScheduledJob{
		ID:          id,
		Kind:        kind,
		Payload:     payload,
		RunAt:       runAt,
		Status:      model.JobPending,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", id, err)
	}
	return nil
}

// Requeue resets an existing job to pending with a fresh attempt budget.
func (s *Scheduler) Requeue(id string) error {
	ok, err := s.jobs.Requeue(id, time.Now())
	if err != nil {
		return fmt.Errorf("requeue job %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("job %s is not requeueable", id)
	}
	return nil
}

// Start launches the polling loop. Stop blocks until in-flight jobs return.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Tick(context.Background())
			}
		}
	}()
	log.Info().Dur("interval", s.interval).Msg("Job scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	log.Info().Msg("Job scheduler stopped")
}

// Tick runs one poll pass: claim due jobs and dispatch them to their kind's
// worker pool. Exported so tests can drive the scheduler deterministically.
func (s *Scheduler) Tick(ctx context.Context) {
	s.reclaimStale()
	due, err := s.jobs.Due(time.Now(), s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler failed to list due jobs")
		return
	}
	for _, job := range due {
		cfg, ok := s.handlers[job.Kind]
		if !ok {
			log.Error().Str("job_id", job.ID).Str("kind", job.Kind).Msg("No handler registered for job kind")
			continue
		}
		// A full pool for one kind must not stall dispatch of the others;
		// the job stays pending and is picked up on a later tick.
		select {
		case cfg.slots <- struct{}{}:
		default:
			continue
		}
		claimed, err := s.jobs.Claim(job.ID)
		if err != nil || !claimed {
			<-cfg.slots
			if err != nil {
				log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to claim job")
			}
			continue
		}
		go func(job model.ScheduledJob, cfg kindConfig) {
			defer func() { <-cfg.slots }()
			s.run(ctx, job, cfg.handler)
		}(job, cfg)
	}
}

// RunDueSync processes due jobs inline, waiting for each handler. Test helper
// and startup catch-up path.
func (s *Scheduler) RunDueSync(ctx context.Context) {
	s.reclaimStale()
	due, err := s.jobs.Due(time.Now(), s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler failed to list due jobs")
		return
	}
	for _, job := range due {
		cfg, ok := s.handlers[job.Kind]
		if !ok {
			continue
		}
		claimed, err := s.jobs.Claim(job.ID)
		if err != nil || !claimed {
			continue
		}
		s.run(ctx, job, cfg.handler)
	}
}

// reclaimStale hands jobs stuck in running past the visibility window back to
// pending, so a worker crash between claim and completion cannot strand them.
func (s *Scheduler) reclaimStale() {
	n, err := s.jobs.ReclaimStale(time.Now().Add(-s.visibility))
	if err != nil {
		log.Error().Err(err).Msg("Failed to reclaim stale running jobs")
		return
	}
	if n > 0 {
		log.Warn().Int64("jobs", n).Msg("Reclaimed stale running jobs")
	}
}

func (s *Scheduler) run(ctx context.Context, job model.ScheduledJob, h HandlerFunc) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return h(ctx, job.Payload)
	}()

	if err == nil {
		if mErr := s.jobs.MarkCompleted(job.ID); mErr != nil {
			log.Error().Err(mErr).Str("job_id", job.ID).Msg("Failed to mark job completed")
		}
		return
	}

	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		// Terminal failure: the row stays visible for operational alerting,
		// never silently dropped.
		if mErr := s.jobs.MarkFailed(job.ID, attempts, err.Error()); mErr != nil {
			log.Error().Err(mErr).Str("job_id", job.ID).Msg("Failed to mark job failed")
		}
		log.Error().Err(err).Str("job_id", job.ID).Str("kind", job.Kind).Int("attempts", attempts).
			Msg("Job exhausted its retry budget")
		return
	}

	backoff := s.baseBackoff * (1 << (attempts - 1))
	if rErr := s.jobs.Reschedule(job.ID, time.Now().Add(backoff), attempts, err.Error()); rErr != nil {
		log.Error().Err(rErr).Str("job_id", job.ID).Msg("Failed to reschedule job")
		return
	}
	log.Warn().Err(err).Str("job_id", job.ID).Str("kind", job.Kind).Int("attempts", attempts).
		Dur("backoff", backoff).Msg("Job failed, will retry")
}
