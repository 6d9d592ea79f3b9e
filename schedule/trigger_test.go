package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

type countingStarter struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (s *countingStarter) StartNew(_ context.Context, name string, _ any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	if s.err != nil {
		return "", s.err
	}
	return "inst_" + name, nil
}

func (s *countingStarter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

func TestTrigger_FireStartsSubscriptionManager(t *testing.T) {
	starter := &countingStarter{}
	trigger, err := NewTrigger("", starter)
	if err != nil {
		t.Fatalf("new trigger: %v", err)
	}
	id, err := trigger.Fire(context.Background())
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if id != "inst_"+core.OrchestrationSubscriptionManager {
		t.Fatalf("unexpected instance id %q", id)
	}
	stats := trigger.Stats()
	if stats.Firings != 1 || stats.LastInstanceID != id {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTrigger_FireFailureIsReported(t *testing.T) {
	starter := &countingStarter{err: errors.New("store unavailable")}
	trigger, err := NewTrigger(core.DefaultRenewalCron, starter)
	if err != nil {
		t.Fatalf("new trigger: %v", err)
	}
	if _, err := trigger.Fire(context.Background()); err == nil {
		t.Fatalf("expected start failure")
	}
	if trigger.Stats().LastError == nil {
		t.Fatalf("expected last error to be recorded")
	}
}

func TestTrigger_CronFiresOnSchedule(t *testing.T) {
	starter := &countingStarter{}
	trigger, err := NewTrigger("* * * * * *", starter)
	if err != nil {
		t.Fatalf("new trigger: %v", err)
	}
	trigger.Start()
	if trigger.NextRun().IsZero() {
		t.Fatalf("expected next run once started")
	}

	deadline := time.Now().Add(3 * time.Second)
	for starter.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("cron did not fire")
		}
		time.Sleep(20 * time.Millisecond)
	}
	<-trigger.Stop().Done()
	if !trigger.NextRun().IsZero() {
		t.Fatalf("expected no next run after stop")
	}
}

func TestValidateAndNext(t *testing.T) {
	if err := Validate("0 */5 * * * *"); err != nil {
		t.Fatalf("expected default expression to validate: %v", err)
	}
	if err := Validate("*/5 * * * *"); err == nil {
		t.Fatalf("expected five-field expression to be rejected")
	}
	next, err := Next(core.DefaultRenewalCron, time.Date(2026, 3, 1, 12, 2, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !next.Equal(time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next firing %s", next)
	}
	if _, err := NewTrigger("not a cron", &countingStarter{}); err == nil {
		t.Fatalf("expected invalid expression error")
	}
	if _, err := NewTrigger("", nil); err == nil {
		t.Fatalf("expected missing starter error")
	}
}
