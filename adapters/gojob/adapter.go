package gojob

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	// JobIDOrchestrationRun is the job carrying one orchestration instance run.
	JobIDOrchestrationRun = orchestration.JobIDRun
	// ScriptPathOrchestrationRun is the go-job script path for orchestration runs.
	ScriptPathOrchestrationRun = "subscriptions.orchestration.run"
)

// RunMessage builds the go-job message that resumes instanceID on a worker.
func RunMessage(instanceID string) *job.ExecutionMessage {
	instanceID = strings.TrimSpace(instanceID)
	return &job.ExecutionMessage{
		JobID:          JobIDOrchestrationRun,
		ScriptPath:     ScriptPathOrchestrationRun,
		Parameters:     map[string]any{orchestration.ParamInstanceID: instanceID},
		IdempotencyKey: instanceID,
	}
}

// ToExecutionMessage maps a core job message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     scriptPathFor(msg),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the core contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps a core nack decision onto a go-job disposition. A
// decision that neither requeues nor dead-letters settles as failed.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	out := queue.NackOptions{
		Delay:       opts.Delay,
		Reason:      strings.TrimSpace(opts.Reason),
		Disposition: queue.NackDispositionFailed,
	}
	switch {
	case opts.DeadLetter:
		out.Disposition = queue.NackDispositionDeadLetter
		out.Delay = 0
	case opts.Requeue:
		out.Disposition = queue.NackDispositionRetry
	default:
		out.Delay = 0
	}
	return out
}

// EnqueuerAdapter lets the orchestration runtime publish run jobs to a
// go-job queue.
type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	_, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
	return err
}

// WorkerHookAdapter exposes a core worker hook as a go-job worker hook.
type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

func scriptPathFor(msg *core.JobExecutionMessage) string {
	if path := strings.TrimSpace(msg.ScriptPath); path != "" {
		return path
	}
	if strings.TrimSpace(msg.JobID) == JobIDOrchestrationRun {
		return ScriptPathOrchestrationRun
	}
	return ""
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
