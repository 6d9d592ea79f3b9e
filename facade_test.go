package subscriptions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gocmd "github.com/goliatone/go-command"
	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/graph"
	"github.com/goliatone/go-subscriptions/orchestration"
	subscriptionsquery "github.com/goliatone/go-subscriptions/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}
	runtime := newFacadeRuntime(t)

	facade, err := NewFacade(svc, WithRuntime(runtime), WithResultReader(core.NewMemoryResultSink()))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.EnsureSubscription == nil || commands.ResolveNotifications == nil || commands.StartOrchestration == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetInstance == nil || queries.ListSteps == nil || queries.ListResults == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() != svc {
		t.Fatalf("expected facade service accessor")
	}
}

func TestNewFacade_OmitsRuntimeHandlersWithoutRuntime(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if facade.Commands().StartOrchestration != nil || facade.Queries().GetInstance != nil || facade.Queries().ListResults != nil {
		t.Fatalf("expected runtime and result handlers to be absent")
	}
}

func TestFacade_NotificationFlowAgainstGraphServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1.0/$batch" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Requests []core.BatchStep `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		responses := make([]map[string]any, 0, len(body.Requests))
		for _, step := range body.Requests {
			if step.URL == "communications/callRecords/missing" {
				responses = append(responses, map[string]any{"id": step.ID, "status": 404})
				continue
			}
			responses = append(responses, map[string]any{
				"id":     step.ID,
				"status": 200,
				"body":   map[string]string{"id": step.URL},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"responses": responses})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Provider.BaseURL = server.URL + "/v1.0"
	cfg.Callback.PublicBaseURL = "https://hooks.example.com"
	svc, err := NewGraphService(cfg, graph.StaticTokenSource("t0ken"))
	if err != nil {
		t.Fatalf("new graph service: %v", err)
	}

	sink := core.NewMemoryResultSink()
	runtime := newFacadeRuntime(t)
	if err := (Workflows{Subscriptions: svc, Resolver: svc, Sink: sink}).Register(runtime); err != nil {
		t.Fatalf("register workflows: %v", err)
	}
	facade, err := NewFacade(svc, WithRuntime(runtime), WithResultReader(sink))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	ctx := context.Background()
	started := gocmd.NewResult[subscriptionscommand.StartOrchestrationResult]()
	collection := NotificationCollection{Value: []ChangeNotification{
		{Resource: "communications/callRecords/a"},
		{Resource: "communications/callRecords/missing"},
	}}
	if err := facade.Commands().StartOrchestration.Execute(gocmd.ContextWithResult(ctx, started), subscriptionscommand.StartOrchestrationMessage{
		Name:  OrchestrationSubscriptionNotification,
		Input: collection,
	}); err != nil {
		t.Fatalf("start orchestration: %v", err)
	}

	startResult, ok := started.Load()
	if !ok || startResult.InstanceID == "" {
		t.Fatalf("expected started instance id")
	}
	id := startResult.InstanceID
	if _, err := runtime.Run(ctx, id); err != nil {
		t.Fatalf("run notification orchestration: %v", err)
	}

	instance, err := facade.Queries().GetInstance.Query(ctx, subscriptionsquery.GetInstanceMessage{InstanceID: id})
	if err != nil {
		t.Fatalf("query instance: %v", err)
	}
	if instance.Status != orchestration.StatusCompleted {
		t.Fatalf("expected completed instance, got %s", instance.Status)
	}
	results, err := facade.Queries().ListResults.Query(ctx, subscriptionsquery.ListResultsMessage{BatchID: id})
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	encoded, _ := json.Marshal(results)
	if string(encoded) != `[{"id":"communications/callRecords/a"},null]` {
		t.Fatalf("unexpected results %s", encoded)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	ensureCalls  int
	resolveCalls int
}

func (s *stubFacadeService) EnsureSubscription(_ context.Context, req core.EnsureSubscriptionRequest) (core.EnsureSubscriptionResult, error) {
	s.ensureCalls++
	return core.EnsureSubscriptionResult{Resource: req.Resource, Action: core.EnsureActionExisting, Matches: 1}, nil
}

func (s *stubFacadeService) ResolveNotifications(_ context.Context, notifications []core.ChangeNotification) ([]core.ResolvedResult, error) {
	s.resolveCalls++
	return make([]core.ResolvedResult, len(notifications)), nil
}

func newFacadeRuntime(t *testing.T) *Runtime {
	t.Helper()
	runtime, err := orchestration.NewRuntime(
		orchestration.NewMemoryInstanceStore(),
		orchestration.NewMemoryStepStore(),
		orchestration.NewMemoryQueue(8),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return runtime
}
