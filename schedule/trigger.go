package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/robfig/cron/v3"
)

// parser accepts six fields, the first being seconds.
var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a six-field renewal expression.
func Validate(spec string) error {
	if _, err := parser.Parse(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Next returns the first firing of spec strictly after from, in UTC.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid cron expression %q: %w", spec, err)
	}
	return sched.Next(from.UTC()).UTC(), nil
}

// Trigger starts a subscription manager orchestration on every firing.
// Firings are independent; a slow run never delays or blocks the next one.
type Trigger struct {
	mu      sync.Mutex
	starter core.OrchestrationStarter
	name    string
	spec    string
	cron    *cron.Cron
	entryID cron.EntryID
	logger  core.Logger
	timeout time.Duration
	started bool
	lastID  string
	lastErr error
	firings int
}

type Option func(*Trigger)

func WithLogger(logger core.Logger) Option {
	return func(t *Trigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithOrchestration overrides the orchestration started on each firing.
func WithOrchestration(name string) Option {
	return func(t *Trigger) {
		if strings.TrimSpace(name) != "" {
			t.name = strings.TrimSpace(name)
		}
	}
}

func WithStartTimeout(timeout time.Duration) Option {
	return func(t *Trigger) {
		t.timeout = timeout
	}
}

func NewTrigger(spec string, starter core.OrchestrationStarter, opts ...Option) (*Trigger, error) {
	if starter == nil {
		return nil, fmt.Errorf("schedule: orchestration starter is required")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = core.DefaultRenewalCron
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	trigger := &Trigger{
		starter: starter,
		name:    core.OrchestrationSubscriptionManager,
		spec:    spec,
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		logger:  glog.Nop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trigger)
		}
	}
	entryID, err := trigger.cron.AddFunc(spec, func() {
		_, _ = trigger.Fire(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: register cron entry: %w", err)
	}
	trigger.entryID = entryID
	return trigger, nil
}

func (t *Trigger) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	t.cron.Start()
	core.LogWithLevel(context.Background(), t.logger, "info", "renewal trigger started", map[string]any{
		"cron":          t.spec,
		"orchestration": t.name,
	})
}

// Stop halts future firings. The returned context is done once firings
// already in progress have returned.
func (t *Trigger) Stop() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	return t.cron.Stop()
}

// Fire starts one orchestration now. Cron firings call it; tests and
// operators may call it directly.
func (t *Trigger) Fire(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	instanceID, err := t.starter.StartNew(ctx, t.name, nil)

	t.mu.Lock()
	t.firings++
	t.lastID = instanceID
	t.lastErr = err
	t.mu.Unlock()

	if err != nil {
		core.LogWithLevel(ctx, t.logger, "error", "renewal trigger failed to start orchestration", map[string]any{
			"orchestration": t.name,
			"error":         err.Error(),
		})
		return "", err
	}
	core.LogWithLevel(ctx, t.logger, "info", fmt.Sprintf("started orchestration with ID = '%s'", instanceID), map[string]any{
		"orchestration": t.name,
		"instance_id":   instanceID,
	})
	return instanceID, nil
}

// NextRun reports the next scheduled firing, zero when not started.
func (t *Trigger) NextRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return time.Time{}
	}
	return t.cron.Entry(t.entryID).Next
}

type Stats struct {
	Firings        int
	LastInstanceID string
	LastError      error
}

func (t *Trigger) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Firings: t.firings, LastInstanceID: t.lastID, LastError: t.lastErr}
}
