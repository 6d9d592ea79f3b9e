package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-subscriptions/core"
)

// StepContext is handed to an orchestrator for one run of one instance.
type StepContext struct {
	instance Instance
	steps    StepStore
	logger   core.Logger
	now      func() time.Time
	called   map[string]struct{}
}

func (sc *StepContext) InstanceID() string {
	return sc.instance.ID
}

func (sc *StepContext) Name() string {
	return sc.instance.Name
}

// Input decodes the instance input into target. A null or absent input
// leaves target untouched.
func (sc *StepContext) Input(target any) error {
	if len(sc.instance.Input) == 0 || string(sc.instance.Input) == "null" {
		return nil
	}
	if err := json.Unmarshal(sc.instance.Input, target); err != nil {
		return fmt.Errorf("orchestration: decode input for %s: %w", sc.instance.ID, err)
	}
	return nil
}

// CallStep runs fn once per (instance, name). When a completed record
// already exists its output is returned and fn is not invoked. A failed
// record is retried on the next run.
func (sc *StepContext) CallStep(ctx context.Context, name string, input any, fn StepFunc) (json.RawMessage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("orchestration: step name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("orchestration: step %q has no function", name)
	}
	if _, dup := sc.called[name]; dup {
		return nil, fmt.Errorf("orchestration: step %q called twice in instance %s", name, sc.instance.ID)
	}
	sc.called[name] = struct{}{}

	existing, found, err := sc.steps.GetStep(ctx, sc.instance.ID, name)
	if err != nil {
		return nil, err
	}
	if found && existing.Status == StepCompleted {
		core.LogWithLevel(ctx, sc.logger, "debug", "step replayed", map[string]any{
			"instance_id": sc.instance.ID,
			"step":        name,
		})
		return cloneRaw(existing.Output), nil
	}

	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("orchestration: encode input for step %q: %w", name, err)
	}

	now := sc.now()
	record := StepRecord{
		InstanceID: sc.instance.ID,
		Name:       name,
		Input:      rawInput,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if found {
		record.Attempts = existing.Attempts + 1
		record.CreatedAt = existing.CreatedAt
	}

	result, stepErr := fn(ctx, rawInput)
	record.UpdatedAt = sc.now()
	if stepErr != nil {
		record.Status = StepFailed
		record.Error = stepErr.Error()
		if _, err := sc.steps.SaveStep(ctx, record); err != nil {
			return nil, err
		}
		return nil, stepErr
	}

	output, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("orchestration: encode output for step %q: %w", name, err)
	}
	record.Status = StepCompleted
	record.Output = output
	if _, err := sc.steps.SaveStep(ctx, record); err != nil {
		return nil, err
	}
	return cloneRaw(output), nil
}
