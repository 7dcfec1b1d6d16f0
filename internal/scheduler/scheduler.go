package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobenricher/internal/model"
)

// Processor runs the enrichment chain for a single job.
type Processor interface {
	Process(ctx context.Context, job model.Job) model.Result
}

// Scheduler owns the main loop: poll for pending jobs, enrich them one at a
// time, and sleep when the queue is empty.
type Scheduler struct {
	store        model.JobStore
	processor    Processor
	notifier     model.Notifier
	batchSize    int
	jobDelay     time.Duration
	idleInterval time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a scheduler. notifier may be nil.
func NewScheduler(
	store model.JobStore,
	processor Processor,
	notifier model.Notifier,
	batchSize int,
	jobDelay time.Duration,
	idleInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		store:        store,
		processor:    processor,
		notifier:     notifier,
		batchSize:    batchSize,
		jobDelay:     jobDelay,
		idleInterval: idleInterval,
		logger:       logger,
	}
}

// Run polls until ctx is cancelled. An empty batch, or a failed read, waits
// idleInterval before polling again. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting enrichment loop",
		"batch_size", s.batchSize,
		"job_delay", s.jobDelay.String(),
		"idle_interval", s.idleInterval.String(),
	)

	for {
		if ctx.Err() != nil {
			s.logger.Info("shutting down enrichment loop")
			return nil
		}

		n := s.runBatch(ctx)
		if n > 0 {
			continue
		}

		s.logger.Debug("no pending jobs, waiting", "interval", s.idleInterval.String())
		if !sleepCtx(ctx, s.idleInterval) {
			s.logger.Info("shutting down enrichment loop")
			return nil
		}
	}
}

// RunOnce processes a single batch and returns the results.
func (s *Scheduler) RunOnce(ctx context.Context) []model.Result {
	jobs, err := s.store.FetchPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("reading pending jobs failed", "error", err)
		return nil
	}
	if len(jobs) == 0 {
		s.logger.Info("no pending jobs")
		return nil
	}
	return s.processBatch(ctx, jobs, false)
}

// runBatch fetches and processes one batch, returning how many jobs it read.
func (s *Scheduler) runBatch(ctx context.Context) int {
	jobs, err := s.store.FetchPending(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("reading pending jobs failed", "error", err)
		}
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}
	s.processBatch(ctx, jobs, true)
	return len(jobs)
}

// processBatch enriches jobs in order with jobDelay after each one. A single
// run skips the delay after its last job.
func (s *Scheduler) processBatch(ctx context.Context, jobs []model.Job, paceLast bool) []model.Result {
	log := s.logger.With("batch", uuid.NewString()[:8])
	log.Info("processing batch", "jobs", len(jobs))

	results := make([]model.Result, 0, len(jobs))
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		res := s.processor.Process(ctx, job)
		results = append(results, res)
		if res.Interrupted {
			break
		}

		if (paceLast || i < len(jobs)-1) && !sleepCtx(ctx, s.jobDelay) {
			break
		}
	}

	full, minimal, failed := tally(results)
	log.Info("batch complete",
		"processed", len(results),
		"full", full,
		"minimal", minimal,
		"failed", failed,
	)

	if s.notifier != nil && len(results) > 0 {
		if err := s.notifier.Notify(results); err != nil {
			log.Error("notification failed", "error", err)
		}
	}
	return results
}

func tally(results []model.Result) (full, minimal, failed int) {
	for _, r := range results {
		switch {
		case r.Full():
			full++
		case r.Persisted:
			minimal++
		default:
			failed++
		}
	}
	return full, minimal, failed
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
