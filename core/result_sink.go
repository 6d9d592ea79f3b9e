package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrResultsNotFound is returned by ResultReader implementations when no
// results were saved for a batch.
var ErrResultsNotFound = errors.New("results not found")

// MemoryResultSink keeps the latest result set per batch id. Saving the same
// batch again replaces it, so a replayed persist step is harmless.
type MemoryResultSink struct {
	mu      sync.RWMutex
	batches map[string][]ResolvedResult
}

func NewMemoryResultSink() *MemoryResultSink {
	return &MemoryResultSink{batches: map[string][]ResolvedResult{}}
}

func (s *MemoryResultSink) SaveResults(_ context.Context, batchID string, results []ResolvedResult) error {
	if s == nil {
		return fmt.Errorf("core: result sink is not configured")
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return fmt.Errorf("core: batch id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batchID] = cloneResults(results)
	return nil
}

func (s *MemoryResultSink) ListResults(_ context.Context, batchID string) ([]ResolvedResult, error) {
	if s == nil {
		return nil, fmt.Errorf("core: result sink is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.batches[strings.TrimSpace(batchID)]
	if !ok {
		return nil, fmt.Errorf("core: %w for batch %q", ErrResultsNotFound, batchID)
	}
	return cloneResults(results), nil
}

func cloneResults(results []ResolvedResult) []ResolvedResult {
	out := make([]ResolvedResult, len(results))
	for i, result := range results {
		if result.Resolved {
			out[i] = Resolved(result.Payload)
			continue
		}
		out[i] = Unresolved()
	}
	return out
}

var (
	_ ResultSink   = (*MemoryResultSink)(nil)
	_ ResultReader = (*MemoryResultSink)(nil)
)
