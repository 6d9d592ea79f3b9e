package subscriptions

import (
	"fmt"

	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
	"github.com/goliatone/go-subscriptions/core"
	subscriptionsquery "github.com/goliatone/go-subscriptions/query"
)

// CommandQueryService is what the lifecycle and resolver commands need.
// *core.Service satisfies it.
type CommandQueryService interface {
	core.SubscriptionManager
	core.NotificationResolver
}

type Commands struct {
	EnsureSubscription   *subscriptionscommand.EnsureSubscriptionCommand
	ResolveNotifications *subscriptionscommand.ResolveNotificationsCommand
	StartOrchestration   *subscriptionscommand.StartOrchestrationCommand
}

type Queries struct {
	GetInstance *subscriptionsquery.GetInstanceQuery
	ListSteps   *subscriptionsquery.ListStepsQuery
	ListResults *subscriptionsquery.ListResultsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	runtime *Runtime
	results core.ResultReader
}

// WithRuntime wires the orchestration start command and the instance
// queries to runtime.
func WithRuntime(runtime *Runtime) FacadeOption {
	return func(options *facadeOptions) {
		options.runtime = runtime
	}
}

// WithResultReader wires the results query.
func WithResultReader(reader core.ResultReader) FacadeOption {
	return func(options *facadeOptions) {
		options.results = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("subscriptions: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		EnsureSubscription:   subscriptionscommand.NewEnsureSubscriptionCommand(service),
		ResolveNotifications: subscriptionscommand.NewResolveNotificationsCommand(service),
	}
	if cfg.runtime != nil {
		facade.commands.StartOrchestration = subscriptionscommand.NewStartOrchestrationCommand(cfg.runtime)
		facade.queries.GetInstance = subscriptionsquery.NewGetInstanceQuery(cfg.runtime)
		facade.queries.ListSteps = subscriptionsquery.NewListStepsQuery(cfg.runtime)
	}
	if cfg.results != nil {
		facade.queries.ListResults = subscriptionsquery.NewListResultsQuery(cfg.results)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
