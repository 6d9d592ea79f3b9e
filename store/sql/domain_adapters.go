package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

func newInstanceRecord(instance orchestration.Instance, now time.Time) *instanceRecord {
	record := &instanceRecord{
		ID:       instance.ID,
		Name:     instance.Name,
		Status:   string(instance.Status),
		Input:    string(instance.Input),
		Output:   string(instance.Output),
		Error:    instance.Error,
		Attempts: instance.Attempts,
	}
	record.CreatedAt = instance.CreatedAt.UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = instance.UpdatedAt.UTC()
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	record.CompletedAt = copyTimePointer(instance.CompletedAt)
	return record
}

func (r *instanceRecord) toDomain() orchestration.Instance {
	if r == nil {
		return orchestration.Instance{}
	}
	return orchestration.Instance{
		ID:          r.ID,
		Name:        r.Name,
		Status:      orchestration.Status(r.Status),
		Input:       rawJSON(r.Input),
		Output:      rawJSON(r.Output),
		Error:       r.Error,
		Attempts:    r.Attempts,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		CompletedAt: copyTimePointer(r.CompletedAt),
	}
}

func newStepRecord(step orchestration.StepRecord, now time.Time) *stepRecord {
	record := &stepRecord{
		InstanceID: step.InstanceID,
		Name:       step.Name,
		Status:     string(step.Status),
		Input:      string(step.Input),
		Output:     string(step.Output),
		Error:      step.Error,
		Attempts:   step.Attempts,
		CreatedAt:  step.CreatedAt.UTC(),
		UpdatedAt:  step.UpdatedAt.UTC(),
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	return record
}

func (r *stepRecord) toDomain() orchestration.StepRecord {
	if r == nil {
		return orchestration.StepRecord{}
	}
	return orchestration.StepRecord{
		InstanceID: r.InstanceID,
		Name:       r.Name,
		Status:     orchestration.StepStatus(r.Status),
		Input:      rawJSON(r.Input),
		Output:     rawJSON(r.Output),
		Error:      r.Error,
		Attempts:   r.Attempts,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func newResultRecord(id string, batchID string, position int, result core.ResolvedResult, now time.Time) *resultRecord {
	record := &resultRecord{
		ID:        id,
		BatchID:   batchID,
		Position:  position,
		Resolved:  result.Resolved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if result.Resolved {
		record.ResourceID = result.ResourceID()
		record.Payload = string(result.Payload)
	}
	return record
}

func (r *resultRecord) toDomain() core.ResolvedResult {
	if r == nil || !r.Resolved {
		return core.Unresolved()
	}
	return core.Resolved(json.RawMessage(r.Payload))
}

func rawJSON(value string) json.RawMessage {
	if value == "" {
		return nil
	}
	return json.RawMessage(value)
}

func copyTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
