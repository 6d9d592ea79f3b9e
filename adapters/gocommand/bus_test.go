package gocommand

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	subscriptionscommand "github.com/goliatone/go-subscriptions/command"
)

func TestBus_MirrorToQueueRegistersCommandsAsJobs(t *testing.T) {
	bus := NewBus(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	if err := bus.MirrorToQueue(queueRegistry); err != nil {
		t.Fatalf("mirror to queue: %v", err)
	}
	if err := bus.Register(Handlers{Starter: nopStarter{}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	t.Cleanup(bus.Close)
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, ok := queueRegistry.Get(subscriptionscommand.TypeStartOrchestration); !ok {
		t.Fatalf("expected start command to be mirrored into the queue registry")
	}
}

func TestBus_MirrorToQueueRequiresRegistry(t *testing.T) {
	if err := NewBus(nil).MirrorToQueue(nil); err == nil {
		t.Fatalf("expected missing queue registry error")
	}
}

func TestBus_CloseDropsSubscriptions(t *testing.T) {
	bus := NewBus(command.NewRegistry())
	if err := bus.Register(Handlers{Starter: nopStarter{}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	bus.Close()
	if bus.Len() != 0 {
		t.Fatalf("expected close to drop subscriptions, got %d", bus.Len())
	}
}

type nopStarter struct{}

func (nopStarter) StartNew(context.Context, string, any) (string, error) { return "inst_nop", nil }
