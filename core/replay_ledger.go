package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultReplayLedgerTTL = 10 * time.Minute
const defaultReplayLedgerMaxEntries = 4096

// MemoryReplayLedger remembers claimed keys until they expire. It is the
// process-local guard the ingress uses to drop redelivered notifications.
type MemoryReplayLedger struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxEntries int
	expiries   map[string]time.Time
	order      []string
	Now        func() time.Time
}

func NewMemoryReplayLedger(defaultTTL time.Duration, maxEntries int) *MemoryReplayLedger {
	if defaultTTL <= 0 {
		defaultTTL = defaultReplayLedgerTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultReplayLedgerMaxEntries
	}
	return &MemoryReplayLedger{
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		expiries:   map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Claim returns true the first time key is seen within its ttl.
func (l *MemoryReplayLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("core: replay key is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, ok := l.expiries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	l.compactLocked(now)
	for len(l.order) >= l.maxEntries {
		delete(l.expiries, l.order[0])
		l.order = l.order[1:]
	}
	l.expiries[key] = now.Add(ttl)
	l.order = append(l.order, key)
	return true, nil
}

// Release forgets key. Releasing an unknown key is a no-op.
func (l *MemoryReplayLedger) Release(_ context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: replay key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expiries, key)
	return nil
}

func (l *MemoryReplayLedger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expiries)
}

// compactLocked drops expired keys and any order entries left behind by a
// re-claim of the same key.
func (l *MemoryReplayLedger) compactLocked(now time.Time) {
	kept := l.order[:0]
	seen := make(map[string]struct{}, len(l.order))
	for _, key := range l.order {
		expiresAt, ok := l.expiries[key]
		if !ok {
			continue
		}
		if !now.Before(expiresAt) {
			delete(l.expiries, key)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, key)
	}
	l.order = kept
}

func (l *MemoryReplayLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

var _ ReplayLedger = (*MemoryReplayLedger)(nil)
