package query

import "strings"

const (
	TypeGetInstance = "subscriptions.query.orchestration.get"
	TypeListSteps   = "subscriptions.query.orchestration.steps"
	TypeListResults = "subscriptions.query.results.list"
)

type GetInstanceMessage struct {
	InstanceID string
}

func (GetInstanceMessage) Type() string { return TypeGetInstance }

func (m GetInstanceMessage) Validate() error {
	if strings.TrimSpace(m.InstanceID) == "" {
		return queryValidationError("instance_id", "instance id is required")
	}
	return nil
}

type ListStepsMessage struct {
	InstanceID string
}

func (ListStepsMessage) Type() string { return TypeListSteps }

func (m ListStepsMessage) Validate() error {
	if strings.TrimSpace(m.InstanceID) == "" {
		return queryValidationError("instance_id", "instance id is required")
	}
	return nil
}

// ListResultsMessage reads the resolved results persisted for a batch. The
// notification orchestration uses its instance id as the batch id.
type ListResultsMessage struct {
	BatchID string
}

func (ListResultsMessage) Type() string { return TypeListResults }

func (m ListResultsMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return queryValidationError("batch_id", "batch id is required")
	}
	return nil
}
