package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-subscriptions/core"
)

const resultsCacheKeyPrefix = "go-subscriptions::results::v1"

type resultBackend interface {
	core.ResultSink
	core.ResultReader
}

// CachedResultStore serves ListResults through a cache and drops the cached
// batch whenever it is saved again.
type CachedResultStore struct {
	base  resultBackend
	cache repositorycache.CacheService
}

func NewCachedResultStore(base resultBackend, cacheService repositorycache.CacheService) (*CachedResultStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base result store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: result cache service is required")
	}
	return &CachedResultStore{base: base, cache: cacheService}, nil
}

// ResultsCacheKey returns go-subscriptions::results::v1::<batch_id> with the
// batch id URL-path escaped.
func ResultsCacheKey(batchID string) (string, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return "", fmt.Errorf("sqlstore: batch id is required")
	}
	return resultsCacheKeyPrefix + "::" + url.PathEscape(batchID), nil
}

func (s *CachedResultStore) SaveResults(ctx context.Context, batchID string, results []core.ResolvedResult) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached result store is not configured")
	}
	cacheKey, err := ResultsCacheKey(batchID)
	if err != nil {
		return err
	}
	if err := s.base.SaveResults(ctx, strings.TrimSpace(batchID), results); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedResultStore) ListResults(ctx context.Context, batchID string) ([]core.ResolvedResult, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached result store is not configured")
	}
	cacheKey, err := ResultsCacheKey(batchID)
	if err != nil {
		return nil, err
	}
	results, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.ResolvedResult, error) {
		return s.base.ListResults(ctx, strings.TrimSpace(batchID))
	})
	if err != nil {
		return nil, err
	}
	return cloneResults(results), nil
}

func cloneResults(results []core.ResolvedResult) []core.ResolvedResult {
	out := make([]core.ResolvedResult, len(results))
	for i, result := range results {
		if result.Resolved {
			out[i] = core.Resolved(result.Payload)
			continue
		}
		out[i] = core.Unresolved()
	}
	return out
}
