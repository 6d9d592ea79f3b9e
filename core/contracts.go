package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// ResourceClient issues authenticated calls to the change-notification
// provider. Every error it returns is a transport failure.
type ResourceClient interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (Subscription, error)
	SubmitBatch(ctx context.Context, steps []BatchStep) (map[string]BatchResponse, error)
}

// ResultSink accepts an ordered sequence of resolved-or-unresolved items
// keyed by an externally assigned batch identifier.
type ResultSink interface {
	SaveResults(ctx context.Context, batchID string, results []ResolvedResult) error
}

type ResultReader interface {
	ListResults(ctx context.Context, batchID string) ([]ResolvedResult, error)
}

// OrchestrationStarter starts a new orchestration instance and returns its id.
type OrchestrationStarter interface {
	StartNew(ctx context.Context, name string, input any) (string, error)
}

// ReplayLedger claims notification keys. Release gives a claim back so a
// redelivery after a failed start is processed again.
type ReplayLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ProviderResponseMeta is the part of a provider response a ThrottlePolicy
// inspects.
type ProviderResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

// ThrottlePolicy gates provider calls per bucket. BeforeCall rejects a call
// while the bucket is throttled; AfterCall records the provider's verdict.
type ThrottlePolicy interface {
	BeforeCall(ctx context.Context, bucket string) error
	AfterCall(ctx context.Context, bucket string, res ProviderResponseMeta) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// SubscriptionManager and NotificationResolver are the two step bodies the
// orchestration workflows call into.
type SubscriptionManager interface {
	EnsureSubscription(ctx context.Context, req EnsureSubscriptionRequest) (EnsureSubscriptionResult, error)
}

type NotificationResolver interface {
	ResolveNotifications(ctx context.Context, notifications []ChangeNotification) ([]ResolvedResult, error)
}
