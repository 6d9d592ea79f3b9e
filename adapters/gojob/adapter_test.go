package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	original := &core.JobExecutionMessage{
		JobID:          JobIDOrchestrationRun,
		Parameters:     map[string]any{orchestration.ParamInstanceID: "inst_1"},
		IdempotencyKey: "inst_1",
		DedupPolicy:    "drop",
	}

	converted := ToExecutionMessage(original)
	if converted == nil {
		t.Fatalf("expected converted message")
	}
	if converted.ScriptPath != ScriptPathOrchestrationRun {
		t.Fatalf("expected default script path, got %q", converted.ScriptPath)
	}
	roundTrip := FromExecutionMessage(converted)
	if roundTrip.JobID != original.JobID {
		t.Fatalf("expected job id %q, got %q", original.JobID, roundTrip.JobID)
	}
	if roundTrip.IdempotencyKey != original.IdempotencyKey {
		t.Fatalf("expected idempotency key %q, got %q", original.IdempotencyKey, roundTrip.IdempotencyKey)
	}
	if roundTrip.DedupPolicy != original.DedupPolicy {
		t.Fatalf("expected dedup policy %q, got %q", original.DedupPolicy, roundTrip.DedupPolicy)
	}
	if roundTrip.Parameters[orchestration.ParamInstanceID] != "inst_1" {
		t.Fatalf("expected parameters to survive mapping")
	}
	if ToExecutionMessage(nil) != nil || FromExecutionMessage(nil) != nil {
		t.Fatalf("expected nil messages to map to nil")
	}
}

func TestRunMessage(t *testing.T) {
	msg := RunMessage(" inst_9 ")
	if msg.JobID != JobIDOrchestrationRun || msg.IdempotencyKey != "inst_9" {
		t.Fatalf("unexpected run message %+v", msg)
	}
	if msg.Parameters[orchestration.ParamInstanceID] != "inst_9" {
		t.Fatalf("expected instance id parameter")
	}
}

func TestEnqueuerAdapterMapsMessage(t *testing.T) {
	ctx := context.Background()
	enqueuer := &stubQueueEnqueuer{}
	adapter := NewEnqueuerAdapter(enqueuer)

	if err := adapter.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          JobIDOrchestrationRun,
		Parameters:     map[string]any{orchestration.ParamInstanceID: "inst_2"},
		IdempotencyKey: "inst_2",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.ScriptPath != ScriptPathOrchestrationRun {
		t.Fatalf("expected mapped go-job message, got %+v", enqueuer.last)
	}
	if err := adapter.Enqueue(ctx, nil); err == nil {
		t.Fatalf("expected nil message error")
	}

	enqueuer.err = errors.New("queue down")
	if err := adapter.Enqueue(ctx, &core.JobExecutionMessage{JobID: JobIDOrchestrationRun}); err == nil {
		t.Fatalf("expected enqueue error to surface")
	}
}

func TestToNackOptionsDispositions(t *testing.T) {
	retry := ToNackOptions(core.JobNackOptions{Requeue: true, Delay: 3 * time.Second, Reason: " transient "})
	if retry.Disposition != queue.NackDispositionRetry || retry.Delay != 3*time.Second || retry.Reason != "transient" {
		t.Fatalf("unexpected retry mapping %+v", retry)
	}

	dead := ToNackOptions(core.JobNackOptions{Requeue: true, DeadLetter: true, Delay: time.Second})
	if dead.Disposition != queue.NackDispositionDeadLetter || dead.Delay != 0 {
		t.Fatalf("expected dead letter to win without delay, got %+v", dead)
	}

	failed := ToNackOptions(core.JobNackOptions{Delay: time.Second, Reason: "exhausted"})
	if failed.Disposition != queue.NackDispositionFailed || failed.Delay != 0 {
		t.Fatalf("expected failed disposition, got %+v", failed)
	}
}

func TestRetryPolicyDecideBoundaries(t *testing.T) {
	policy := NewRetryPolicy(core.JobRetryPolicy{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        3 * time.Second,
		DeadLetterOnMax: true,
	})

	first := policy.Decide(1, errors.New("transient"))
	if first.Disposition != queue.NackDispositionRetry || first.Delay != time.Second {
		t.Fatalf("unexpected first decision %+v", first)
	}
	second := policy.Decide(2, errors.New("transient"))
	if second.Disposition != queue.NackDispositionRetry || second.Delay != 2*time.Second {
		t.Fatalf("unexpected second decision %+v", second)
	}
	last := policy.Decide(3, errors.New("still failing"))
	if last.Disposition != queue.NackDispositionDeadLetter || last.Reason != "still failing" {
		t.Fatalf("expected dead letter at max attempts, got %+v", last)
	}

	terminal := policy.Decide(1, job.NewTerminalError("", "instance gone", nil))
	if terminal.Disposition != queue.NackDispositionDeadLetter || terminal.Reason != "instance gone" {
		t.Fatalf("expected terminal error to dead letter, got %+v", terminal)
	}

	noDLQ := NewRetryPolicy(core.JobRetryPolicy{MaxAttempts: 1}).Decide(1, errors.New("boom"))
	if noDLQ.Disposition != queue.NackDispositionFailed {
		t.Fatalf("expected failed disposition without dead letter, got %+v", noDLQ)
	}
}

func TestRunTaskExecute(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{}
	task := NewRunTask(runner)

	if task.GetID() != JobIDOrchestrationRun || task.GetPath() != ScriptPathOrchestrationRun {
		t.Fatalf("unexpected task identity %q %q", task.GetID(), task.GetPath())
	}
	if err := task.Execute(ctx, RunMessage("inst_5")); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.ids) != 1 || runner.ids[0] != "inst_5" {
		t.Fatalf("expected run for inst_5, got %v", runner.ids)
	}

	var terminal job.NonRetryableError
	if err := task.Execute(ctx, &job.ExecutionMessage{JobID: JobIDOrchestrationRun}); !errors.As(err, &terminal) {
		t.Fatalf("expected terminal error for missing instance id, got %v", err)
	}

	runner.err = orchestration.ErrInstanceNotFound
	err := task.Execute(ctx, RunMessage("inst_6"))
	if !errors.As(err, &terminal) || !errors.Is(err, orchestration.ErrInstanceNotFound) {
		t.Fatalf("expected terminal not-found error, got %v", err)
	}

	runner.err = errors.New("graph unavailable")
	err = task.Execute(ctx, RunMessage("inst_7"))
	if err == nil || errors.As(err, &terminal) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestNewRunWorkerRequiresCollaborators(t *testing.T) {
	if _, err := NewRunWorker(nil, &stubQueueDequeuer{}, core.DefaultJobRetryPolicy(), nil); err == nil {
		t.Fatalf("expected missing runtime error")
	}
	if _, err := NewRunWorker(&stubRunner{}, nil, core.DefaultJobRetryPolicy(), nil); err == nil {
		t.Fatalf("expected missing dequeuer error")
	}
	w, err := NewRunWorker(&stubRunner{}, &stubQueueDequeuer{}, core.DefaultJobRetryPolicy(), nil)
	if err != nil {
		t.Fatalf("new run worker: %v", err)
	}
	if tasks := w.RegisteredTasks(); len(tasks) != 1 || tasks[0].GetID() != JobIDOrchestrationRun {
		t.Fatalf("expected run task registration, got %v", tasks)
	}
}

func TestWorkerHookAdapterEventMapping(t *testing.T) {
	now := time.Now().UTC().Add(-time.Second)
	coreHook := &capturingHook{}
	adapter := NewWorkerHookAdapter(coreHook)

	adapter.OnRetry(context.Background(), worker.Event{
		Message:   RunMessage("inst_4"),
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: now,
		Duration:  250 * time.Millisecond,
	})
	last := coreHook.lastRetry()
	if last.Message == nil {
		t.Fatalf("expected worker message mapping")
	}
	if last.Message.JobID != JobIDOrchestrationRun {
		t.Fatalf("expected job id mapping, got %q", last.Message.JobID)
	}
	if last.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", last.Attempt)
	}
	if last.Delay != 5*time.Second {
		t.Fatalf("expected delay 5s, got %s", last.Delay)
	}
	if last.Duration != 250*time.Millisecond {
		t.Fatalf("expected duration mapping")
	}
	if last.StartedAt.IsZero() {
		t.Fatalf("expected started_at mapping")
	}
	if last.Err == nil || last.Err.Error() != "retry" {
		t.Fatalf("expected error mapping")
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
	err  error
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	if s.err != nil {
		return queue.EnqueueReceipt{}, s.err
	}
	s.last = msg
	return queue.EnqueueReceipt{DispatchID: "dispatch-1", EnqueuedAt: time.Now().UTC()}, nil
}

type stubQueueDequeuer struct{}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return nil, nil
}

type stubRunner struct {
	ids []string
	err error
}

func (s *stubRunner) Run(_ context.Context, instanceID string) (orchestration.Instance, error) {
	s.ids = append(s.ids, instanceID)
	return orchestration.Instance{ID: instanceID}, s.err
}
