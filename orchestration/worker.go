package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
)

// Worker drains a job queue and runs each referenced instance. A failed run
// is nacked for redelivery within the retry policy bounds; redelivery
// replays completed steps rather than repeating them.
type Worker struct {
	Runtime *Runtime
	Queue   core.JobDequeuer
	Hook    core.JobWorkerHook
	Retry   core.JobRetryPolicy
	Logger  core.Logger
}

func NewWorker(runtime *Runtime, queue core.JobDequeuer, retry core.JobRetryPolicy) *Worker {
	return &Worker{
		Runtime: runtime,
		Queue:   queue,
		Retry:   retry,
		Logger:  glog.Nop(),
	}
}

// Start processes deliveries until ctx ends or the queue closes.
func (w *Worker) Start(ctx context.Context) error {
	if w == nil || w.Runtime == nil || w.Queue == nil {
		return fmt.Errorf("orchestration: worker requires runtime and queue")
	}
	for {
		err := w.ProcessNext(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrQueueClosed):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			core.LogWithLevel(ctx, w.Logger, "error", "worker delivery failed", map[string]any{"error": err.Error()})
		}
	}
}

// ProcessNext dequeues and settles exactly one delivery. Errors from the
// orchestration itself are settled through the queue and not returned.
func (w *Worker) ProcessNext(ctx context.Context) error {
	delivery, err := w.Queue.Dequeue(ctx)
	if err != nil {
		return err
	}
	msg := delivery.Message()
	instanceID := instanceIDFromMessage(msg)
	if msg == nil || msg.JobID != JobIDRun || instanceID == "" {
		return delivery.Nack(ctx, core.JobNackOptions{DeadLetter: true, Reason: "unrecognized job message"})
	}

	startedAt := time.Now().UTC()
	event := core.JobWorkerEvent{Message: msg, StartedAt: startedAt}
	w.hook(func(h core.JobWorkerHook) { h.OnStart(ctx, event) })

	instance, runErr := w.Runtime.Run(ctx, instanceID)
	event.Attempt = instance.Attempts
	event.Duration = time.Since(startedAt)
	if runErr == nil {
		w.hook(func(h core.JobWorkerHook) { h.OnSuccess(ctx, event) })
		return delivery.Ack(ctx)
	}

	event.Err = runErr
	if errors.Is(runErr, ErrInstanceNotFound) || errors.Is(runErr, ErrUnknownOrchestrator) {
		w.hook(func(h core.JobWorkerHook) { h.OnFailure(ctx, event) })
		return delivery.Nack(ctx, core.JobNackOptions{DeadLetter: true, Reason: runErr.Error()})
	}

	opts := w.Retry.NormalizeAttempt(core.JobNackOptions{
		Requeue: true,
		Delay:   w.Retry.Backoff(instance.Attempts),
		Reason:  runErr.Error(),
	}, instance.Attempts)
	event.Delay = opts.Delay
	if opts.Requeue {
		w.hook(func(h core.JobWorkerHook) { h.OnRetry(ctx, event) })
	} else {
		core.LogWithLevel(ctx, w.Logger, "error", "orchestration retries exhausted", map[string]any{
			"instance_id": instanceID,
			"attempts":    instance.Attempts,
			"error":       runErr.Error(),
		})
		w.hook(func(h core.JobWorkerHook) { h.OnFailure(ctx, event) })
	}
	return delivery.Nack(ctx, opts)
}

func (w *Worker) hook(fn func(core.JobWorkerHook)) {
	if w.Hook != nil {
		fn(w.Hook)
	}
}

func instanceIDFromMessage(msg *core.JobExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if value, ok := msg.Parameters[ParamInstanceID].(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(msg.IdempotencyKey)
}
