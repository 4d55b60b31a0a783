package persistence

import (
	"context"
	"sync"

	"github.com/averho/stepflow/pkg/workflow"
)

// InMemoryRunStore is a goroutine-safe RunStore backed by a map. Runs
// are stored as encoded copies, so later mutation of a saved response
// does not leak into the store.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// Ensure InMemoryRunStore implements RunStore.
var _ workflow.RunStore = (*InMemoryRunStore)(nil)

// NewInMemoryRunStore creates an empty in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string][]byte)}
}

func (s *InMemoryRunStore) SaveRun(ctx context.Context, run *workflow.RunResponse) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = data
	return nil
}

func (s *InMemoryRunStore) GetRun(ctx context.Context, runID string) (*workflow.RunResponse, error) {
	s.mu.RLock()
	data, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, workflow.ErrRunNotFound
	}
	return DecodeRun(data)
}

func (s *InMemoryRunStore) ListRuns(ctx context.Context, filter workflow.RunFilter) ([]*workflow.RunResponse, error) {
	s.mu.RLock()
	encoded := make([][]byte, 0, len(s.runs))
	for _, data := range s.runs {
		encoded = append(encoded, data)
	}
	s.mu.RUnlock()

	var out []*workflow.RunResponse
	for _, data := range encoded {
		run, err := DecodeRun(data)
		if err != nil {
			return nil, err
		}
		if matches(run, filter) {
			out = append(out, run)
		}
	}
	sortNewestFirst(out)
	return applyLimit(out, filter.Limit), nil
}
