package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-subscriptions/core"
)

type EnsureSubscriptionCommand struct {
	manager core.SubscriptionManager
}

func NewEnsureSubscriptionCommand(manager core.SubscriptionManager) *EnsureSubscriptionCommand {
	return &EnsureSubscriptionCommand{manager: manager}
}

func (c *EnsureSubscriptionCommand) Execute(ctx context.Context, msg EnsureSubscriptionMessage) error {
	if c == nil || c.manager == nil {
		return commandDependencyError("command: subscription manager is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.manager.EnsureSubscription(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResolveNotificationsCommand struct {
	resolver core.NotificationResolver
}

func NewResolveNotificationsCommand(resolver core.NotificationResolver) *ResolveNotificationsCommand {
	return &ResolveNotificationsCommand{resolver: resolver}
}

func (c *ResolveNotificationsCommand) Execute(ctx context.Context, msg ResolveNotificationsMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: notification resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.resolver.ResolveNotifications(ctx, msg.Notifications)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type StartOrchestrationCommand struct {
	starter core.OrchestrationStarter
}

func NewStartOrchestrationCommand(starter core.OrchestrationStarter) *StartOrchestrationCommand {
	return &StartOrchestrationCommand{starter: starter}
}

func (c *StartOrchestrationCommand) Execute(ctx context.Context, msg StartOrchestrationMessage) error {
	if c == nil || c.starter == nil {
		return commandDependencyError("command: orchestration starter is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	instanceID, err := c.starter.StartNew(ctx, strings.TrimSpace(msg.Name), msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, StartOrchestrationResult{InstanceID: instanceID})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
