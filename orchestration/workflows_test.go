package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

type stubManager struct {
	mu    sync.Mutex
	calls []core.EnsureSubscriptionRequest
}

func (m *stubManager) EnsureSubscription(_ context.Context, req core.EnsureSubscriptionRequest) (core.EnsureSubscriptionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return core.EnsureSubscriptionResult{Resource: req.Resource, Action: core.EnsureActionExisting, Matches: 1}, nil
}

type stubResolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubResolver) ResolveNotifications(_ context.Context, notifications []core.ChangeNotification) ([]core.ResolvedResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	out := make([]core.ResolvedResult, len(notifications))
	for i, notification := range notifications {
		if notification.Resource == "r/missing" {
			out[i] = core.Unresolved()
			continue
		}
		payload, _ := json.Marshal(map[string]string{"id": notification.Resource})
		out[i] = core.Resolved(payload)
	}
	return out, nil
}

type flakySink struct {
	*core.MemoryResultSink
	mu    sync.Mutex
	fail  int
	saves int
}

func (s *flakySink) SaveResults(ctx context.Context, batchID string, results []core.ResolvedResult) error {
	s.mu.Lock()
	s.saves++
	shouldFail := s.fail > 0
	if shouldFail {
		s.fail--
	}
	s.mu.Unlock()
	if shouldFail {
		return errors.New("sink unavailable")
	}
	return s.MemoryResultSink.SaveResults(ctx, batchID, results)
}

func TestWorkflows_SubscriptionManagerRunsEnsureStep(t *testing.T) {
	runtime, _, steps := newTestRuntime(t)
	manager := &stubManager{}
	workflows := Workflows{
		Subscriptions: manager,
		Resolver:      &stubResolver{},
		Resource:      "communications/callRecords",
		TTL:           48 * time.Hour,
	}
	if err := workflows.Register(runtime); err != nil {
		t.Fatalf("register workflows: %v", err)
	}

	id, err := runtime.StartNew(context.Background(), core.OrchestrationSubscriptionManager, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	instance, err := runtime.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(manager.calls) != 1 || manager.calls[0].Resource != "communications/callRecords" || manager.calls[0].TTL != 48*time.Hour {
		t.Fatalf("unexpected manager calls %+v", manager.calls)
	}
	var result core.EnsureSubscriptionResult
	if err := json.Unmarshal(instance.Output, &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.Action != core.EnsureActionExisting {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, found, _ := steps.GetStep(context.Background(), id, StepEnsureSubscription); !found {
		t.Fatalf("expected ensure_subscription step record")
	}
}

func TestWorkflows_NotificationResolvesAndPersists(t *testing.T) {
	runtime, _, _ := newTestRuntime(t)
	resolver := &stubResolver{}
	sink := &flakySink{MemoryResultSink: core.NewMemoryResultSink(), fail: 1}
	workflows := Workflows{Subscriptions: &stubManager{}, Resolver: resolver, Sink: sink}
	if err := workflows.Register(runtime); err != nil {
		t.Fatalf("register: %v", err)
	}

	id, err := runtime.StartNew(context.Background(), core.OrchestrationSubscriptionNotification, core.NotificationCollection{
		Value: []core.ChangeNotification{{Resource: "r/X"}, {Resource: "r/missing"}, {Resource: "r/Y"}},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := runtime.Run(context.Background(), id); err == nil {
		t.Fatalf("expected first attempt to fail on the sink")
	}
	instance, err := runtime.Run(context.Background(), id)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected resolve step to replay from its record, got %d resolver calls", resolver.calls)
	}
	if sink.saves != 2 {
		t.Fatalf("expected persist step to retry, got %d saves", sink.saves)
	}

	stored, err := sink.ListResults(context.Background(), id)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(stored) != 3 || stored[0].ResourceID() != "r/X" || stored[1].Resolved || stored[2].ResourceID() != "r/Y" {
		t.Fatalf("unexpected stored results %+v", stored)
	}
	if string(instance.Output) != `[{"id":"r/X"},null,{"id":"r/Y"}]` {
		t.Fatalf("unexpected output %s", instance.Output)
	}
}

func TestWorkflows_NotificationResolveFailureFailsInstance(t *testing.T) {
	runtime, _, _ := newTestRuntime(t)
	resolver := &stubResolver{err: core.NewTransportFailure("graph: batch failed", 503, nil)}
	workflows := Workflows{Subscriptions: &stubManager{}, Resolver: resolver}
	_ = workflows.Register(runtime)

	id, _ := runtime.StartNew(context.Background(), core.OrchestrationSubscriptionNotification, core.NotificationCollection{
		Value: []core.ChangeNotification{{Resource: "r/X"}},
	})
	instance, err := runtime.Run(context.Background(), id)
	if !core.IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if instance.Status != StatusFailed {
		t.Fatalf("expected failed instance, got %s", instance.Status)
	}
}

func TestWorkflows_RegisterRequiresDependencies(t *testing.T) {
	runtime, _, _ := newTestRuntime(t)
	if err := (Workflows{}).Register(runtime); err == nil {
		t.Fatalf("expected missing dependency error")
	}
}
