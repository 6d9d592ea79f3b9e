package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

// hints are the throttling signals Graph puts on a response. RetryAfter
// comes from Retry-After. Remaining and Reset come from the IETF draft
// RateLimit-Remaining and RateLimit-Reset headers.
type hints struct {
	RetryAfter time.Duration
	Remaining  *int
	Reset      time.Duration
}

func readHints(res core.ProviderResponseMeta, now time.Time) hints {
	header := http.Header{}
	for key, value := range res.Headers {
		header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	var out hints
	if res.RetryAfter != nil && *res.RetryAfter > 0 {
		out.RetryAfter = *res.RetryAfter
	} else {
		out.RetryAfter = retryAfter(header.Get("Retry-After"), now)
	}
	if remaining, err := strconv.Atoi(header.Get("RateLimit-Remaining")); err == nil && remaining >= 0 {
		out.Remaining = &remaining
	}
	if seconds, err := strconv.Atoi(header.Get("RateLimit-Reset")); err == nil && seconds > 0 {
		out.Reset = time.Duration(seconds) * time.Second
	}
	return out
}

// retryAfter accepts both delay-seconds and HTTP-date forms.
func retryAfter(raw string, now time.Time) time.Duration {
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	at, err := http.ParseTime(raw)
	if err != nil || !at.After(now) {
		return 0
	}
	return at.Sub(now)
}

func (h hints) quotaSpent() bool {
	return h.Remaining != nil && *h.Remaining == 0 && h.Reset > 0
}
