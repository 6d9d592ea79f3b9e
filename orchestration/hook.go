package orchestration

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
)

// LogHook reports worker lifecycle events on a logger. Starts and
// successes log at debug, retries at warn and failures at error.
type LogHook struct {
	Logger core.Logger
}

func NewLogHook(logger core.Logger) *LogHook {
	if logger == nil {
		logger = glog.Nop()
	}
	return &LogHook{Logger: logger}
}

func (h *LogHook) OnStart(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "debug", "orchestration run started", event)
}

func (h *LogHook) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "debug", "orchestration run completed", event)
}

func (h *LogHook) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "error", "orchestration run failed", event)
}

func (h *LogHook) OnRetry(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "warn", "orchestration run scheduled for retry", event)
}

func (h *LogHook) log(ctx context.Context, level, msg string, event core.JobWorkerEvent) {
	if h == nil {
		return
	}
	fields := map[string]any{
		"instance_id": instanceIDFromMessage(event.Message),
		"attempt":     event.Attempt,
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Delay > 0 {
		fields["delay"] = event.Delay.String()
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	core.LogWithLevel(ctx, h.Logger, level, msg, fields)
}

var _ core.JobWorkerHook = (*LogHook)(nil)
