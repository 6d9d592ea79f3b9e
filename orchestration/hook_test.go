package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
)

func TestLogHook_LevelsFollowOutcome(t *testing.T) {
	var buf bytes.Buffer
	hook := NewLogHook(glog.NewLogger(
		glog.WithLoggerTypeJSON(),
		glog.WithLevel("debug"),
		glog.WithWriter(&buf),
	))
	ctx := context.Background()
	event := core.JobWorkerEvent{
		Message: &core.JobExecutionMessage{
			JobID:      JobIDRun,
			Parameters: map[string]any{ParamInstanceID: "inst_1"},
		},
		Attempt:  2,
		Delay:    time.Second,
		Err:      errors.New("provider unavailable"),
		Duration: 20 * time.Millisecond,
	}

	hook.OnStart(ctx, core.JobWorkerEvent{Message: event.Message, Attempt: 1})
	hook.OnRetry(ctx, event)
	hook.OnFailure(ctx, event)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected three log lines, got %q", buf.String())
	}
	want := []string{"debug", "warn", "error"}
	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d is not JSON: %q", i, line)
		}
		if entry["level"] != want[i] {
			t.Fatalf("line %d: expected level %s, got %v", i, want[i], entry["level"])
		}
		if entry["instance_id"] != "inst_1" {
			t.Fatalf("line %d: expected instance id, got %v", i, entry["instance_id"])
		}
	}
	if !strings.Contains(lines[1], "provider unavailable") || !strings.Contains(lines[1], `"delay":"1s"`) {
		t.Fatalf("expected retry line to carry error and delay, got %q", lines[1])
	}
}

func TestLogHook_NilLoggerIsSilent(t *testing.T) {
	hook := NewLogHook(nil)
	hook.OnSuccess(context.Background(), core.JobWorkerEvent{})
}
