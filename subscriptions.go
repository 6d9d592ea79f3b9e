package subscriptions

import (
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type ResourceClient = core.ResourceClient
type ResultSink = core.ResultSink
type ResultReader = core.ResultReader
type OrchestrationStarter = core.OrchestrationStarter
type CallbackURLResolver = core.CallbackURLResolver
type MetricsRecorder = core.MetricsRecorder

type Subscription = core.Subscription
type ChangeNotification = core.ChangeNotification
type NotificationCollection = core.NotificationCollection
type ResolvedResult = core.ResolvedResult

type EnsureSubscriptionRequest = core.EnsureSubscriptionRequest
type EnsureSubscriptionResult = core.EnsureSubscriptionResult

type Runtime = orchestration.Runtime
type Workflows = orchestration.Workflows
type OrchestratorFunc = orchestration.OrchestratorFunc

const (
	OrchestrationSubscriptionManager      = core.OrchestrationSubscriptionManager
	OrchestrationSubscriptionNotification = core.OrchestrationSubscriptionNotification
)

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithResourceClient      = core.WithResourceClient
	WithCallbackURLResolver = core.WithCallbackURLResolver
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
