package ratelimit

import (
	"strings"
	"time"
)

// Window is the throttle state of one call bucket. A bucket is closed until
// Until passes.
type Window struct {
	Bucket string
	Until  time.Time
	// Strikes counts consecutive throttled responses and drives backoff
	// when the provider sends no retry hint.
	Strikes    int
	Remaining  *int
	LastStatus int
	Reason     string
	ObservedAt time.Time
}

// Wait returns how long callers must hold off at now.
func (w Window) Wait(now time.Time) time.Duration {
	if w.Until.IsZero() || !now.Before(w.Until) {
		return 0
	}
	return w.Until.Sub(now)
}

func (w Window) open(now time.Time, status int) Window {
	w.Until = time.Time{}
	w.Strikes = 0
	w.Reason = ""
	w.LastStatus = status
	w.ObservedAt = now
	return w
}

func normalizeBucket(bucket string) string {
	return strings.ToLower(strings.TrimSpace(bucket))
}
