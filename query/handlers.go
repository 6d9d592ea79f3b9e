package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

type InstanceReader interface {
	Status(ctx context.Context, instanceID string) (orchestration.Instance, error)
	Steps(ctx context.Context, instanceID string) ([]orchestration.StepRecord, error)
}

type GetInstanceQuery struct {
	reader InstanceReader
}

func NewGetInstanceQuery(reader InstanceReader) *GetInstanceQuery {
	return &GetInstanceQuery{reader: reader}
}

func (q *GetInstanceQuery) Query(ctx context.Context, msg GetInstanceMessage) (orchestration.Instance, error) {
	if q == nil || q.reader == nil {
		return orchestration.Instance{}, queryDependencyError("query: instance reader is required")
	}
	if err := msg.Validate(); err != nil {
		return orchestration.Instance{}, err
	}
	instance, err := q.reader.Status(ctx, strings.TrimSpace(msg.InstanceID))
	if err != nil {
		return orchestration.Instance{}, queryReadError(err)
	}
	return instance, nil
}

type ListStepsQuery struct {
	reader InstanceReader
}

func NewListStepsQuery(reader InstanceReader) *ListStepsQuery {
	return &ListStepsQuery{reader: reader}
}

func (q *ListStepsQuery) Query(ctx context.Context, msg ListStepsMessage) ([]orchestration.StepRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: instance reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	steps, err := q.reader.Steps(ctx, strings.TrimSpace(msg.InstanceID))
	if err != nil {
		return nil, queryReadError(err)
	}
	return steps, nil
}

type ListResultsQuery struct {
	reader core.ResultReader
}

func NewListResultsQuery(reader core.ResultReader) *ListResultsQuery {
	return &ListResultsQuery{reader: reader}
}

func (q *ListResultsQuery) Query(ctx context.Context, msg ListResultsMessage) ([]core.ResolvedResult, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: result reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	results, err := q.reader.ListResults(ctx, strings.TrimSpace(msg.BatchID))
	if err != nil {
		return nil, queryReadError(err)
	}
	return results, nil
}
