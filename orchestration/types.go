package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JobIDRun is the job id of the message enqueued for every started instance.
const JobIDRun = "orchestration.run"

const ParamInstanceID = "instance_id"

var (
	ErrInstanceNotFound    = errors.New("orchestration: instance not found")
	ErrUnknownOrchestrator = errors.New("orchestration: orchestrator is not registered")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Instance struct {
	ID          string
	Name        string
	Status      Status
	Input       json.RawMessage
	Output      json.RawMessage
	Error       string
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (i Instance) Terminal() bool {
	return i.Status == StatusCompleted
}

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepRecord is the recorded outcome of one named step of one instance. A
// completed record is returned on replay instead of invoking the step again.
type StepRecord struct {
	InstanceID string
	Name       string
	Status     StepStatus
	Input      json.RawMessage
	Output     json.RawMessage
	Error      string
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type InstanceStore interface {
	CreateInstance(ctx context.Context, instance Instance) (Instance, error)
	GetInstance(ctx context.Context, id string) (Instance, error)
	UpdateInstance(ctx context.Context, instance Instance) (Instance, error)
}

// StepStore persists step records keyed by (instance id, step name).
// SaveStep replaces any record already stored under that key.
type StepStore interface {
	GetStep(ctx context.Context, instanceID string, name string) (StepRecord, bool, error)
	SaveStep(ctx context.Context, record StepRecord) (StepRecord, error)
	ListSteps(ctx context.Context, instanceID string) ([]StepRecord, error)
}

// OrchestratorFunc is the body of an orchestration. It must be deterministic
// across replays: every side effect goes through StepContext.CallStep.
type OrchestratorFunc func(ctx context.Context, sc *StepContext) (any, error)

type StepFunc func(ctx context.Context, input json.RawMessage) (any, error)
