package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

const (
	StepEnsureSubscription   = "ensure_subscription"
	StepResolveNotifications = "resolve_notifications"
	StepPersistResults       = "persist_results"
)

// Workflows binds the two built-in orchestrations to their step bodies.
type Workflows struct {
	Subscriptions core.SubscriptionManager
	Resolver      core.NotificationResolver
	Sink          core.ResultSink
	Resource      string
	TTL           time.Duration
}

func (w Workflows) Register(runtime *Runtime) error {
	if runtime == nil {
		return fmt.Errorf("orchestration: runtime is required")
	}
	if w.Subscriptions == nil || w.Resolver == nil {
		return fmt.Errorf("orchestration: workflows require a subscription manager and a notification resolver")
	}
	if err := runtime.Register(core.OrchestrationSubscriptionManager, w.SubscriptionManager); err != nil {
		return err
	}
	return runtime.Register(core.OrchestrationSubscriptionNotification, w.SubscriptionNotification)
}

type ensureStepInput struct {
	Resource string        `json:"resource,omitempty"`
	TTL      time.Duration `json:"ttl,omitempty"`
}

// SubscriptionManager runs the check-then-create as a single step.
func (w Workflows) SubscriptionManager(ctx context.Context, sc *StepContext) (any, error) {
	output, err := sc.CallStep(ctx, StepEnsureSubscription, ensureStepInput{Resource: w.Resource, TTL: w.TTL},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			var in ensureStepInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, err
			}
			return w.Subscriptions.EnsureSubscription(ctx, core.EnsureSubscriptionRequest{
				Resource: in.Resource,
				TTL:      in.TTL,
			})
		})
	if err != nil {
		return nil, err
	}
	var result core.EnsureSubscriptionResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("orchestration: decode %s output: %w", StepEnsureSubscription, err)
	}
	return result, nil
}

type persistStepOutput struct {
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
}

// SubscriptionNotification resolves the delivered collection and hands the
// positional results to the sink under the instance id.
func (w Workflows) SubscriptionNotification(ctx context.Context, sc *StepContext) (any, error) {
	var collection core.NotificationCollection
	if err := sc.Input(&collection); err != nil {
		return nil, err
	}

	output, err := sc.CallStep(ctx, StepResolveNotifications, collection.Value,
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			var notifications []core.ChangeNotification
			if err := json.Unmarshal(raw, &notifications); err != nil {
				return nil, err
			}
			return w.Resolver.ResolveNotifications(ctx, notifications)
		})
	if err != nil {
		return nil, err
	}
	var results []core.ResolvedResult
	if err := json.Unmarshal(output, &results); err != nil {
		return nil, fmt.Errorf("orchestration: decode %s output: %w", StepResolveNotifications, err)
	}

	if w.Sink != nil {
		batchID := sc.InstanceID()
		if _, err := sc.CallStep(ctx, StepPersistResults, results,
			func(ctx context.Context, raw json.RawMessage) (any, error) {
				var items []core.ResolvedResult
				if err := json.Unmarshal(raw, &items); err != nil {
					return nil, err
				}
				if err := w.Sink.SaveResults(ctx, batchID, items); err != nil {
					return nil, err
				}
				return persistStepOutput{BatchID: batchID, Count: len(items)}, nil
			}); err != nil {
			return nil, err
		}
	}
	return results, nil
}
