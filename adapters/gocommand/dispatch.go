package gocommand

import (
	"context"
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
	"github.com/goliatone/go-subscriptions/query"
)

// EnsureSubscription runs the ensure command registered on the bus.
func EnsureSubscription(ctx context.Context, req core.EnsureSubscriptionRequest) (core.EnsureSubscriptionResult, error) {
	return dispatchFor[core.EnsureSubscriptionResult](ctx, subscriptionscommand.EnsureSubscriptionMessage{Request: req})
}

func ResolveNotifications(ctx context.Context, notifications []core.ChangeNotification) ([]core.ResolvedResult, error) {
	return dispatchFor[[]core.ResolvedResult](ctx, subscriptionscommand.ResolveNotificationsMessage{Notifications: notifications})
}

// StartOrchestration starts name with input and returns the instance id.
func StartOrchestration(ctx context.Context, name string, input any) (string, error) {
	out, err := dispatchFor[subscriptionscommand.StartOrchestrationResult](ctx,
		subscriptionscommand.StartOrchestrationMessage{Name: name, Input: input})
	if err != nil {
		return "", err
	}
	return out.InstanceID, nil
}

func GetInstance(ctx context.Context, instanceID string) (orchestration.Instance, error) {
	return commanddispatcher.Query[query.GetInstanceMessage, orchestration.Instance](ctx,
		query.GetInstanceMessage{InstanceID: instanceID})
}

func ListSteps(ctx context.Context, instanceID string) ([]orchestration.StepRecord, error) {
	return commanddispatcher.Query[query.ListStepsMessage, []orchestration.StepRecord](ctx,
		query.ListStepsMessage{InstanceID: instanceID})
}

func ListResults(ctx context.Context, batchID string) ([]core.ResolvedResult, error) {
	return commanddispatcher.Query[query.ListResultsMessage, []core.ResolvedResult](ctx,
		query.ListResultsMessage{BatchID: batchID})
}

// dispatchFor dispatches msg with a result collector and returns what the
// command stored.
func dispatchFor[R any, T command.Message](ctx context.Context, msg T) (R, error) {
	var zero R
	collector := command.NewResult[R]()
	if err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	if err := collector.Error(); err != nil {
		return zero, err
	}
	out, ok := collector.Load()
	if !ok {
		return zero, fmt.Errorf("gocommand: %s stored no result", msg.Type())
	}
	return out, nil
}
