package gojob

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"

	"github.com/goliatone/go-job/queue/adapters/postgres"
	"github.com/goliatone/go-job/queue/worker"
	_ "github.com/mattn/go-sqlite3"
)

func openTestRunQueue(t *testing.T) *postgres.Adapter {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	adapter, err := OpenRunQueue(context.Background(), db, postgres.DialectSQLite)
	if err != nil {
		t.Fatalf("open run queue: %v", err)
	}
	return adapter
}

func waitForStatus(t *testing.T, runtime *orchestration.Runtime, id string, status orchestration.Status) orchestration.Instance {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		instance, err := runtime.Status(context.Background(), id)
		if err == nil && instance.Status == status {
			return instance
		}
		if time.Now().After(deadline) {
			t.Fatalf("instance %s did not reach %s, last %+v err=%v", id, status, instance, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunWorkerDrainsDurableQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := openTestRunQueue(t)

	runtime, err := orchestration.NewRuntime(
		orchestration.NewMemoryInstanceStore(),
		orchestration.NewMemoryStepStore(),
		NewEnqueuerAdapter(adapter),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	var failures atomic.Int32
	failures.Store(1)
	if err := runtime.Register("flaky", func(ctx context.Context, sc *orchestration.StepContext) (any, error) {
		if failures.Add(-1) >= 0 {
			return nil, errors.New("provider unavailable")
		}
		return "done", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	hook := &capturingHook{}
	w, err := NewRunWorker(runtime, adapter, core.JobRetryPolicy{MaxAttempts: 3}, hook,
		worker.WithIdleDelay(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new run worker: %v", err)
	}

	id, err := runtime.StartNew(ctx, "flaky", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("worker start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	instance := waitForStatus(t, runtime, id, orchestration.StatusCompleted)
	if instance.Attempts != 2 {
		t.Fatalf("expected one retry before completion, got %d attempts", instance.Attempts)
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("worker stop: %v", err)
	}
	if hook.retries() != 1 || hook.successes() != 1 {
		t.Fatalf("expected one retry and one success, got %d and %d", hook.retries(), hook.successes())
	}
}

func TestRunWorkerDeadLettersMissingInstance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := openTestRunQueue(t)

	runtime, err := orchestration.NewRuntime(
		orchestration.NewMemoryInstanceStore(),
		orchestration.NewMemoryStepStore(),
		NewEnqueuerAdapter(adapter),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := adapter.Enqueue(ctx, RunMessage("inst_missing")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	hook := &capturingHook{}
	w, err := NewRunWorker(runtime, adapter, core.JobRetryPolicy{MaxAttempts: 5}, hook,
		worker.WithIdleDelay(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new run worker: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("worker start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	deadline := time.Now().Add(5 * time.Second)
	for hook.failures() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected missing instance to fail terminally")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("worker stop: %v", err)
	}
	if hook.retries() != 0 {
		t.Fatalf("expected no retries for a missing instance, got %d", hook.retries())
	}
	delivery, err := adapter.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if delivery != nil {
		t.Fatalf("expected the message to leave the queue, got %+v", delivery.Message())
	}
}

type capturingHook struct {
	mu     sync.Mutex
	last   core.JobWorkerEvent
	counts map[string]int
}

func (h *capturingHook) record(kind string, event core.JobWorkerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.counts == nil {
		h.counts = map[string]int{}
	}
	h.counts[kind]++
	if kind == "retry" {
		h.last = event
	}
}

func (h *capturingHook) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[kind]
}

func (h *capturingHook) lastRetry() core.JobWorkerEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *capturingHook) retries() int   { return h.count("retry") }
func (h *capturingHook) successes() int { return h.count("success") }
func (h *capturingHook) failures() int  { return h.count("failure") }

func (h *capturingHook) OnStart(_ context.Context, event core.JobWorkerEvent) {
	h.record("start", event)
}

func (h *capturingHook) OnSuccess(_ context.Context, event core.JobWorkerEvent) {
	h.record("success", event)
}

func (h *capturingHook) OnFailure(_ context.Context, event core.JobWorkerEvent) {
	h.record("failure", event)
}

func (h *capturingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.record("retry", event)
}
