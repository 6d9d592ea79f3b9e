package gocommand

import (
	"fmt"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

const queueResolverKey = "subscriptions.queue"

// Bus owns the go-command registry for the subscription commands and
// queries, plus the dispatcher subscriptions that route to them.
type Bus struct {
	registry *command.Registry
	subs     []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry}
}

// MirrorToQueue makes every command registered on the bus runnable as a
// go-job queued command once Initialize runs.
func (b *Bus) MirrorToQueue(queueRegistry *jobqueuecommand.Registry) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.registry.AddResolver(queueResolverKey, jobqueuecommand.QueueResolver(queueRegistry))
}

// Initialize runs the registry resolvers. Call it after Register.
func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Len reports how many handlers are subscribed.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	return len(b.subs)
}

// Close removes every dispatcher subscription.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	unsubscribe(b.subs)
	b.subs = nil
}

func unsubscribe(subs []commanddispatcher.Subscription) {
	for _, sub := range subs {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

func subscribeCommand[T any](b *Bus, cmd command.Commander[T], opts ...runner.Option) error {
	sub := commanddispatcher.SubscribeCommand(cmd, opts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		unsubscribe([]commanddispatcher.Subscription{sub})
		return err
	}
	b.subs = append(b.subs, sub)
	return nil
}

func subscribeQuery[T any, R any](b *Bus, qry command.Querier[T, R], opts ...runner.Option) error {
	sub := commanddispatcher.SubscribeQuery(qry, opts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		unsubscribe([]commanddispatcher.Subscription{sub})
		return err
	}
	b.subs = append(b.subs, sub)
	return nil
}
