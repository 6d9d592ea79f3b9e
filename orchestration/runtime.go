package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/google/uuid"
)

type Runtime struct {
	mu            sync.RWMutex
	orchestrators map[string]OrchestratorFunc

	instances InstanceStore
	steps     StepStore
	queue     core.JobEnqueuer
	logger    core.Logger
	now       func() time.Time
	newID     func() string
}

type RuntimeOption func(*Runtime)

func WithRuntimeLogger(logger core.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRuntimeClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(newID func() string) RuntimeOption {
	return func(r *Runtime) {
		if newID != nil {
			r.newID = newID
		}
	}
}

func NewRuntime(instances InstanceStore, steps StepStore, queue core.JobEnqueuer, opts ...RuntimeOption) (*Runtime, error) {
	if instances == nil || steps == nil {
		return nil, fmt.Errorf("orchestration: runtime requires instance and step stores")
	}
	if queue == nil {
		return nil, fmt.Errorf("orchestration: runtime requires a job enqueuer")
	}
	runtime := &Runtime{
		orchestrators: map[string]OrchestratorFunc{},
		instances:     instances,
		steps:         steps,
		queue:         queue,
		logger:        glog.Nop(),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(runtime)
		}
	}
	return runtime, nil
}

func (r *Runtime) Register(name string, fn OrchestratorFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("orchestration: orchestrator name is required")
	}
	if fn == nil {
		return fmt.Errorf("orchestration: orchestrator %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orchestrators[name]; exists {
		return fmt.Errorf("orchestration: orchestrator %q already registered", name)
	}
	r.orchestrators[name] = fn
	return nil
}

func (r *Runtime) lookup(name string) (OrchestratorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.orchestrators[name]
	return fn, ok
}

// StartNew persists a pending instance and enqueues it for a worker.
func (r *Runtime) StartNew(ctx context.Context, name string, input any) (string, error) {
	name = strings.TrimSpace(name)
	if _, ok := r.lookup(name); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOrchestrator, name)
	}
	rawInput, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("orchestration: encode input for %s: %w", name, err)
	}

	now := r.now()
	instance, err := r.instances.CreateInstance(ctx, Instance{
		ID:        r.newID(),
		Name:      name,
		Status:    StatusPending,
		Input:     rawInput,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", err
	}

	if err := r.queue.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          JobIDRun,
		Parameters:     map[string]any{ParamInstanceID: instance.ID},
		IdempotencyKey: instance.ID,
	}); err != nil {
		instance.Status = StatusFailed
		instance.Error = err.Error()
		instance.UpdatedAt = r.now()
		_, _ = r.instances.UpdateInstance(ctx, instance)
		return "", err
	}

	core.LogWithLevel(ctx, r.logger, "info", "orchestration started", map[string]any{
		"instance_id":   instance.ID,
		"orchestration": name,
	})
	return instance.ID, nil
}

// Run executes one attempt of instanceID. A completed instance is returned
// as is. Steps that completed on an earlier attempt are replayed from their
// records.
func (r *Runtime) Run(ctx context.Context, instanceID string) (Instance, error) {
	instance, err := r.instances.GetInstance(ctx, strings.TrimSpace(instanceID))
	if err != nil {
		return Instance{}, err
	}
	if instance.Terminal() {
		return instance, nil
	}
	fn, ok := r.lookup(instance.Name)
	if !ok {
		return instance, fmt.Errorf("%w: %s", ErrUnknownOrchestrator, instance.Name)
	}

	instance.Status = StatusRunning
	instance.Attempts++
	instance.Error = ""
	instance.UpdatedAt = r.now()
	if instance, err = r.instances.UpdateInstance(ctx, instance); err != nil {
		return Instance{}, err
	}

	sc := &StepContext{
		instance: instance,
		steps:    r.steps,
		logger:   r.logger,
		now:      r.now,
		called:   map[string]struct{}{},
	}
	fields := map[string]any{
		"instance_id":   instance.ID,
		"orchestration": instance.Name,
		"attempt":       instance.Attempts,
	}

	output, runErr := fn(ctx, sc)
	if runErr == nil {
		var encoded []byte
		encoded, runErr = json.Marshal(output)
		instance.Output = encoded
	}
	instance.UpdatedAt = r.now()
	if runErr != nil {
		instance.Status = StatusFailed
		instance.Error = runErr.Error()
		instance.Output = nil
		fields["error"] = runErr.Error()
		core.LogWithLevel(ctx, r.logger, "error", "orchestration attempt failed", fields)
		if _, err := r.instances.UpdateInstance(ctx, instance); err != nil {
			return instance, err
		}
		return instance, runErr
	}

	completedAt := instance.UpdatedAt
	instance.Status = StatusCompleted
	instance.CompletedAt = &completedAt
	if instance, err = r.instances.UpdateInstance(ctx, instance); err != nil {
		return Instance{}, err
	}
	core.LogWithLevel(ctx, r.logger, "info", "orchestration completed", fields)
	return instance, nil
}

func (r *Runtime) Status(ctx context.Context, instanceID string) (Instance, error) {
	return r.instances.GetInstance(ctx, strings.TrimSpace(instanceID))
}

func (r *Runtime) Steps(ctx context.Context, instanceID string) ([]StepRecord, error) {
	return r.steps.ListSteps(ctx, strings.TrimSpace(instanceID))
}

var _ core.OrchestrationStarter = (*Runtime)(nil)
