package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobenricher/internal/model"
)

// RetryStore is a decorator that retries transient write failures with
// exponential backoff and jitter before giving up. Reads are passed through:
// a failed read is handled by the caller as an empty batch.
type RetryStore struct {
	inner       model.JobStore
	isTransient func(error) bool
	maxRetries  int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewRetryStore wraps a JobStore with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
// isTransient decides which errors are worth another attempt.
func NewRetryStore(inner model.JobStore, isTransient func(error) bool, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryStore {
	return &RetryStore{
		inner:       inner,
		isTransient: isTransient,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

func (s *RetryStore) FetchPending(ctx context.Context, limit int) ([]model.Job, error) {
	return s.inner.FetchPending(ctx, limit)
}

// PersistResult writes through the wrapped store, retrying on transient errors.
func (s *RetryStore) PersistResult(ctx context.Context, jobID string, ext *model.Extraction, description string) error {
	err := s.inner.PersistResult(ctx, jobID, ext, description)
	if err == nil || !s.retryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt)

		s.logger.Warn("retrying after transient store error",
			"job", jobID,
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = s.inner.PersistResult(ctx, jobID, ext, description)
		if err == nil {
			return nil
		}
		if !s.retryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
func (s *RetryStore) backoffDelay(attempt int) time.Duration {
	// Exponential: baseDelay * 2^(attempt-1)
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

func (s *RetryStore) retryable(err error) bool {
	if s.isTransient == nil {
		return false
	}
	return s.isTransient(err)
}
