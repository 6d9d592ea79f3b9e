package ratelimit

import (
	"context"
	"fmt"
	"sync"
)

// WindowStore persists throttle windows by bucket.
type WindowStore interface {
	Load(ctx context.Context, bucket string) (Window, bool, error)
	Save(ctx context.Context, window Window) error
}

type MemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[string]Window
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: map[string]Window{}}
}

func (s *MemoryWindowStore) Load(_ context.Context, bucket string) (Window, bool, error) {
	if s == nil {
		return Window{}, false, fmt.Errorf("ratelimit: window store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	window, ok := s.windows[normalizeBucket(bucket)]
	return window, ok, nil
}

func (s *MemoryWindowStore) Save(_ context.Context, window Window) error {
	if s == nil {
		return fmt.Errorf("ratelimit: window store is not configured")
	}
	window.Bucket = normalizeBucket(window.Bucket)
	if window.Bucket == "" {
		return fmt.Errorf("ratelimit: bucket is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[window.Bucket] = window
	return nil
}
