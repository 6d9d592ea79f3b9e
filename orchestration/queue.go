package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

var ErrQueueClosed = errors.New("orchestration: queue closed")

// MemoryQueue is an in-process job queue. Enqueue blocks while the buffer
// is full. Nack with Requeue schedules the message again after the requested
// delay and waits for buffer space rather than dropping it.
type MemoryQueue struct {
	ready chan *core.JobExecutionMessage
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	timers  map[*time.Timer]struct{}
	pending int
	dead    []*core.JobExecutionMessage
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{
		ready:  make(chan *core.JobExecutionMessage, capacity),
		done:   make(chan struct{}),
		timers: map[*time.Timer]struct{}{},
	}
}

// Enqueue never holds the queue lock while waiting for space, so nacks and
// Close proceed while producers are blocked.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if msg == nil {
		return fmt.Errorf("orchestration: execution message is required")
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ready <- cloneMessage(msg):
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a message is ready, the queue closes or ctx ends.
func (q *MemoryQueue) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}
	select {
	case msg := <-q.ready:
		return &memoryDelivery{queue: q, msg: msg}, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len counts buffered messages plus requeued ones still waiting for their
// delay or for buffer space.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + q.pending
}

// DeadLetters returns messages nacked with DeadLetter or dropped after
// exhausting retries.
func (q *MemoryQueue) DeadLetters() []*core.JobExecutionMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*core.JobExecutionMessage, len(q.dead))
	copy(out, q.dead)
	return out
}

// Close stops pending redeliveries and wakes blocked producers and
// consumers. Buffered messages are discarded.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for timer := range q.timers {
		if timer.Stop() {
			q.pending--
		}
	}
	q.timers = map[*time.Timer]struct{}{}
	close(q.done)
}

func (q *MemoryQueue) requeue(msg *core.JobExecutionMessage, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending++
	if delay <= 0 {
		q.offerLocked(msg)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, timer)
		if q.closed {
			q.pending--
			return
		}
		q.offerLocked(msg)
	})
	q.timers[timer] = struct{}{}
}

// offerLocked hands msg to the buffer when there is room and otherwise
// parks it on a goroutine that waits for space or Close.
func (q *MemoryQueue) offerLocked(msg *core.JobExecutionMessage) {
	select {
	case q.ready <- msg:
		q.pending--
		return
	default:
	}
	go func() {
		select {
		case q.ready <- msg:
		case <-q.done:
		}
		q.mu.Lock()
		q.pending--
		q.mu.Unlock()
	}()
}

func (q *MemoryQueue) deadLetter(msg *core.JobExecutionMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, msg)
}

type memoryDelivery struct {
	queue   *MemoryQueue
	msg     *core.JobExecutionMessage
	settled bool
}

func (d *memoryDelivery) Message() *core.JobExecutionMessage {
	return cloneMessage(d.msg)
}

func (d *memoryDelivery) Ack(context.Context) error {
	if d.settled {
		return fmt.Errorf("orchestration: delivery already settled")
	}
	d.settled = true
	return nil
}

func (d *memoryDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	if d.settled {
		return fmt.Errorf("orchestration: delivery already settled")
	}
	d.settled = true
	switch {
	case opts.Requeue:
		d.queue.requeue(d.msg, opts.Delay)
	default:
		d.queue.deadLetter(d.msg)
	}
	return nil
}

func cloneMessage(msg *core.JobExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	out := *msg
	out.Parameters = make(map[string]any, len(msg.Parameters))
	for key, value := range msg.Parameters {
		out.Parameters[key] = value
	}
	return &out
}

var (
	_ core.JobEnqueuer = (*MemoryQueue)(nil)
	_ core.JobDequeuer = (*MemoryQueue)(nil)
	_ core.JobDelivery = (*memoryDelivery)(nil)
)
