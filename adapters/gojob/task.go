package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

// InstanceRunner resumes one persisted orchestration instance.
type InstanceRunner interface {
	Run(ctx context.Context, instanceID string) (orchestration.Instance, error)
}

// RunTask is the go-job task behind every orchestration run message. A
// redelivered message replays the instance, so completed steps are not
// repeated.
type RunTask struct {
	runner InstanceRunner
	config job.Config
}

func NewRunTask(runner InstanceRunner) *RunTask {
	return &RunTask{runner: runner}
}

func (t *RunTask) GetID() string                        { return JobIDOrchestrationRun }
func (t *RunTask) GetPath() string                      { return ScriptPathOrchestrationRun }
func (t *RunTask) GetConfig() job.Config                { return t.config }
func (t *RunTask) GetHandler() func() error             { return func() error { return nil } }
func (t *RunTask) GetHandlerConfig() job.HandlerOptions { return job.HandlerOptions{} }
func (t *RunTask) GetEngine() job.Engine                { return nil }

// Execute runs the instance named by the message. Missing instances and
// unregistered orchestrators are terminal and skip the retry policy.
func (t *RunTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil || t.runner == nil {
		return fmt.Errorf("gojob: run task has no runtime")
	}
	instanceID := instanceIDFrom(msg)
	if instanceID == "" {
		return job.NewTerminalError("", "orchestration run message has no instance id", nil)
	}
	_, err := t.runner.Run(ctx, instanceID)
	if errors.Is(err, orchestration.ErrInstanceNotFound) || errors.Is(err, orchestration.ErrUnknownOrchestrator) {
		return job.NewTerminalError("", err.Error(), err)
	}
	return err
}

// RetryPolicy applies a core retry policy to go-job worker failures.
type RetryPolicy struct {
	Policy core.JobRetryPolicy
}

func NewRetryPolicy(policy core.JobRetryPolicy) RetryPolicy {
	return RetryPolicy{Policy: policy}
}

func (p RetryPolicy) Decide(attempt int, err error) queue.NackOptions {
	if attempt <= 0 {
		attempt = 1
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	var terminal job.NonRetryableError
	if errors.As(err, &terminal) && terminal.NonRetryable() {
		return queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      terminal.NonRetryableReason(),
		}
	}
	return ToNackOptions(p.Policy.NormalizeAttempt(core.JobNackOptions{
		Requeue: true,
		Delay:   p.Policy.Backoff(attempt),
		Reason:  reason,
	}, attempt))
}

// NewRunWorker builds a go-job worker that consumes orchestration run
// messages from dequeuer. Lifecycle events are forwarded to hook.
func NewRunWorker(runner InstanceRunner, dequeuer queue.Dequeuer, retry core.JobRetryPolicy, hook core.JobWorkerHook, opts ...worker.Option) (*worker.Worker, error) {
	if runner == nil {
		return nil, fmt.Errorf("gojob: run worker requires a runtime")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: run worker requires a dequeuer")
	}
	options := []worker.Option{worker.WithRetryPolicy(NewRetryPolicy(retry))}
	if hook != nil {
		options = append(options, worker.WithHooks(NewWorkerHookAdapter(hook)))
	}
	options = append(options, opts...)

	w := worker.NewWorker(dequeuer, options...)
	if err := w.Register(NewRunTask(runner)); err != nil {
		return nil, fmt.Errorf("gojob: register run task: %w", err)
	}
	return w, nil
}

func instanceIDFrom(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if value, ok := msg.Parameters[orchestration.ParamInstanceID].(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(msg.IdempotencyKey)
}

var (
	_ job.Task           = (*RunTask)(nil)
	_ worker.RetryPolicy = RetryPolicy{}
)
