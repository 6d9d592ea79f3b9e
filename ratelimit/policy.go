package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute

	reasonThrottled = "throttled"
	reasonQuota     = "quota_exhausted"
)

// Policy holds calls to a bucket while Graph has asked the caller to back
// off. 429, and 503 or 504 carrying Retry-After, close the window for the
// hinted delay, or for an exponential backoff over consecutive strikes when
// no hint is given. A spent RateLimit-Remaining quota closes it until
// RateLimit-Reset. Any other response reopens the bucket.
type Policy struct {
	Store          WindowStore
	Now            func() time.Time
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewPolicy(store WindowStore) *Policy {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	return &Policy{
		Store:          store,
		Now:            func() time.Time { return time.Now().UTC() },
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

func (p *Policy) BeforeCall(ctx context.Context, bucket string) error {
	if p == nil || p.Store == nil {
		return nil
	}
	window, ok, err := p.Store.Load(ctx, normalizeBucket(bucket))
	if err != nil || !ok {
		return err
	}
	if wait := window.Wait(p.now()); wait > 0 {
		return ThrottledError{Bucket: window.Bucket, RetryAfter: wait, Reason: window.Reason}
	}
	return nil
}

func (p *Policy) AfterCall(ctx context.Context, bucket string, res core.ProviderResponseMeta) error {
	if p == nil || p.Store == nil {
		return nil
	}
	bucket = normalizeBucket(bucket)
	window, ok, err := p.Store.Load(ctx, bucket)
	if err != nil {
		return err
	}
	if !ok {
		window = Window{Bucket: bucket}
	}

	now := p.now()
	hint := readHints(res, now)
	switch {
	case throttledStatus(res.StatusCode, hint):
		window.Strikes++
		delay := hint.RetryAfter
		if delay <= 0 {
			delay = p.backoff(window.Strikes)
		}
		window.Until = now.Add(delay)
		window.Reason = reasonThrottled
		window.LastStatus = res.StatusCode
		window.ObservedAt = now
	case hint.quotaSpent():
		window.Until = now.Add(hint.Reset)
		window.Reason = reasonQuota
		window.LastStatus = res.StatusCode
		window.ObservedAt = now
	default:
		window = window.open(now, res.StatusCode)
	}
	window.Remaining = hint.Remaining
	return p.Store.Save(ctx, window)
}

func throttledStatus(status int, hint hints) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return hint.RetryAfter > 0
	}
	return false
}

// backoff doubles InitialBackoff per strike up to MaxBackoff.
func (p *Policy) backoff(strikes int) time.Duration {
	delay := p.InitialBackoff
	if delay <= 0 {
		delay = defaultInitialBackoff
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = defaultMaxBackoff
	}
	for i := 1; i < strikes && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}

func (p *Policy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

var _ core.ThrottlePolicy = (*Policy)(nil)
