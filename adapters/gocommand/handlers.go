package gocommand

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-command/runner"
	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/query"
)

// Handlers lists the collaborators behind the subscription command and
// query handlers. A nil collaborator skips the handlers that need it.
type Handlers struct {
	Subscriptions core.SubscriptionManager
	Resolver      core.NotificationResolver
	Starter       core.OrchestrationStarter
	Instances     query.InstanceReader
	Results       core.ResultReader
}

// Register subscribes every handler whose collaborators are configured. On
// error the handlers added by this call are removed again.
func (b *Bus) Register(handlers Handlers, runnerOpts ...runner.Option) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	before := len(b.subs)

	var errs []error
	if handlers.Subscriptions != nil {
		errs = append(errs, subscribeCommand(b,
			subscriptionscommand.NewEnsureSubscriptionCommand(handlers.Subscriptions), runnerOpts...))
	}
	if handlers.Resolver != nil {
		errs = append(errs, subscribeCommand(b,
			subscriptionscommand.NewResolveNotificationsCommand(handlers.Resolver), runnerOpts...))
	}
	if handlers.Starter != nil {
		errs = append(errs, subscribeCommand(b,
			subscriptionscommand.NewStartOrchestrationCommand(handlers.Starter), runnerOpts...))
	}
	if handlers.Instances != nil {
		errs = append(errs,
			subscribeQuery(b, query.NewGetInstanceQuery(handlers.Instances), runnerOpts...),
			subscribeQuery(b, query.NewListStepsQuery(handlers.Instances), runnerOpts...),
		)
	}
	if handlers.Results != nil {
		errs = append(errs, subscribeQuery(b, query.NewListResultsQuery(handlers.Results), runnerOpts...))
	}

	if err := errors.Join(errs...); err != nil {
		unsubscribe(b.subs[before:])
		b.subs = b.subs[:before]
		return err
	}
	return nil
}
