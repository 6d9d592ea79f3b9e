package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

func TestMemoryQueue_BlockedEnqueueDoesNotBlockNackOrClose(t *testing.T) {
	queue := NewMemoryQueue(1)
	ctx := context.Background()
	if err := queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "first"}); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	delivery, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "second"}); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "third"}) }()
	time.Sleep(20 * time.Millisecond)

	nacked := make(chan error, 1)
	go func() {
		nacked <- delivery.Nack(ctx, core.JobNackOptions{Requeue: true, Delay: time.Millisecond})
	}()
	select {
	case err := <-nacked:
		if err != nil {
			t.Fatalf("nack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("nack blocked behind a waiting producer")
	}

	closed := make(chan struct{})
	go func() {
		queue.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("close blocked behind a waiting producer")
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected blocked enqueue to fail with ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked enqueue was not released by close")
	}
	if _, err := queue.Dequeue(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected dequeue after close to fail, got %v", err)
	}
}

func TestMemoryQueue_RequeueWaitsForSpaceInsteadOfDeadLettering(t *testing.T) {
	queue := NewMemoryQueue(1)
	defer queue.Close()
	ctx := context.Background()

	if err := queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "retry"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	delivery, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "filler"}); err != nil {
		t.Fatalf("enqueue filler: %v", err)
	}
	if err := delivery.Nack(ctx, core.JobNackOptions{Requeue: true}); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if len(queue.DeadLetters()) != 0 {
		t.Fatalf("expected retry to wait for space, got dead letters %+v", queue.DeadLetters())
	}
	if queue.Len() != 2 {
		t.Fatalf("expected filler and pending retry to be counted, got %d", queue.Len())
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		dequeueCtx, cancel := context.WithTimeout(ctx, time.Second)
		next, err := queue.Dequeue(dequeueCtx)
		cancel()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		seen[next.Message().JobID] = true
		_ = next.Ack(ctx)
	}
	if !seen["retry"] || !seen["filler"] {
		t.Fatalf("expected both messages delivered, got %v", seen)
	}
	if len(queue.DeadLetters()) != 0 {
		t.Fatalf("expected no dead letters, got %d", len(queue.DeadLetters()))
	}
}

func TestMemoryQueue_CloseCancelsDelayedRequeue(t *testing.T) {
	queue := NewMemoryQueue(2)
	ctx := context.Background()
	_ = queue.Enqueue(ctx, &core.JobExecutionMessage{JobID: "later"})
	delivery, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := delivery.Nack(ctx, core.JobNackOptions{Requeue: true, Delay: time.Hour}); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected delayed retry to be pending, got %d", queue.Len())
	}
	queue.Close()
	if queue.Len() != 0 {
		t.Fatalf("expected close to cancel delayed retry, got %d", queue.Len())
	}
}
