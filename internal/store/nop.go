package store

import (
	"context"
	"sync"

	"github.com/amishk599/jobenricher/internal/model"
)

// DryRunStore reads pending jobs from an underlying store but never writes.
// Jobs it has already handed out are skipped so a dry run over the whole
// queue terminates.
type DryRunStore struct {
	reader model.JobStore

	mu     sync.Mutex
	served map[string]bool
}

// NewDryRunStore wraps reader. Nothing is ever written through it.
func NewDryRunStore(reader model.JobStore) *DryRunStore {
	return &DryRunStore{reader: reader, served: make(map[string]bool)}
}

// FetchPending returns up to limit pending jobs that this store has not
// returned before.
func (s *DryRunStore) FetchPending(ctx context.Context, limit int) ([]model.Job, error) {
	s.mu.Lock()
	skip := len(s.served)
	s.mu.Unlock()

	jobs, err := s.reader.FetchPending(ctx, limit+skip)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Job
	for _, j := range jobs {
		if s.served[j.ID] {
			continue
		}
		s.served[j.ID] = true
		out = append(out, j)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// PersistResult discards the result.
func (s *DryRunStore) PersistResult(context.Context, string, *model.Extraction, string) error {
	return nil
}
