package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-subscriptions/core"
)

// ThrottledError is returned by BeforeCall while a bucket's window is
// closed.
type ThrottledError struct {
	Bucket     string
	RetryAfter time.Duration
	Reason     string
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf("ratelimit: %s held for %s", e.Bucket, e.RetryAfter.Round(time.Millisecond))
}

func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{
		"bucket":         e.Bucket,
		"retry_after_ms": e.RetryAfter.Milliseconds(),
	}
	if e.Reason != "" {
		metadata["reason"] = e.Reason
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ServiceErrorRateLimited).
		WithMetadata(metadata)
}
