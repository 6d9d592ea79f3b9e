package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/adapters/gocommand"
	"github.com/goliatone/go-subscriptions/adapters/gojob"
	"github.com/goliatone/go-subscriptions/adapters/gologger"
	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	provider := &compatProvider{logger: compatLogger{}}
	_, _, jobProvider, jobLogger := gologger.ResolveForJob(gologger.NameWorker, provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueuer := &compatEnqueuer{}
	runtime, err := orchestration.NewRuntime(
		orchestration.NewMemoryInstanceStore(),
		orchestration.NewMemoryStepStore(),
		gojob.NewEnqueuerAdapter(enqueuer),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if err := runtime.Register(core.OrchestrationSubscriptionManager, func(context.Context, *orchestration.StepContext) (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("register orchestrator: %v", err)
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	bus := gocommand.NewBus(command.NewRegistry())
	if err := bus.MirrorToQueue(queueRegistry); err != nil {
		t.Fatalf("mirror to queue: %v", err)
	}
	if err := bus.Register(gocommand.Handlers{Starter: runtime}); err != nil {
		t.Fatalf("register handlers: %v", err)
	}
	t.Cleanup(bus.Close)
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(subscriptionscommand.TypeStartOrchestration); !ok {
		t.Fatalf("expected command resolver hook to mirror start command into go-job queue registry")
	}

	if _, err := gocommand.StartOrchestration(ctx, core.OrchestrationSubscriptionManager, nil); err != nil {
		t.Fatalf("dispatch start: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != gojob.JobIDOrchestrationRun {
		t.Fatalf("expected run job to reach the go-job enqueuer, got %+v", enqueuer.last)
	}
	if enqueuer.last.ScriptPath != gojob.ScriptPathOrchestrationRun {
		t.Fatalf("expected run script path, got %q", enqueuer.last.ScriptPath)
	}
}

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	e.last = msg
	return queue.EnqueueReceipt{DispatchID: msg.IdempotencyKey}, nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
