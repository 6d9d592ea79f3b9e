package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ChangeTypeCreated is the only change type this system subscribes to.
const ChangeTypeCreated = "created"

const BatchStepMethod = "GET"

type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	Resource           string    `json:"resource"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState,omitempty"`
}

type CreateSubscriptionInput struct {
	Resource           string
	NotificationURL    string
	ExpirationDateTime time.Time
	ClientState        string
}

type ChangeNotification struct {
	ID                             string     `json:"id,omitempty"`
	SubscriptionID                 string     `json:"subscriptionId"`
	Resource                       string     `json:"resource"`
	ChangeType                     string     `json:"changeType"`
	ClientState                    string     `json:"clientState,omitempty"`
	SubscriptionExpirationDateTime *time.Time `json:"subscriptionExpirationDateTime,omitempty"`
	TenantID                       string     `json:"tenantId,omitempty"`
}

// NotificationCollection is the delivery payload. Order of Value is significant.
type NotificationCollection struct {
	Value []ChangeNotification `json:"value"`
}

func (c NotificationCollection) Empty() bool {
	return len(c.Value) == 0
}

// BatchStep is one sub-request of a multiplexed call. ID is the stringified
// zero-based position of the originating notification.
type BatchStep struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type BatchResponse struct {
	ID      string            `json:"id"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// NewBatchSteps maps notification i to a step with id strconv.Itoa(i).
func NewBatchSteps(notifications []ChangeNotification) []BatchStep {
	steps := make([]BatchStep, len(notifications))
	for i, notification := range notifications {
		steps[i] = BatchStep{
			ID:     strconv.Itoa(i),
			Method: BatchStepMethod,
			URL:    strings.TrimSpace(notification.Resource),
		}
	}
	return steps
}

// ResolvedResult is either a fetched payload or the unresolved marker.
type ResolvedResult struct {
	Resolved bool
	Payload  json.RawMessage
}

func Resolved(payload json.RawMessage) ResolvedResult {
	return ResolvedResult{
		Resolved: true,
		Payload:  append(json.RawMessage(nil), payload...),
	}
}

func Unresolved() ResolvedResult {
	return ResolvedResult{}
}

// ResourceID returns the "id" field of a resolved JSON object payload.
func (r ResolvedResult) ResourceID() string {
	if !r.Resolved || len(r.Payload) == 0 {
		return ""
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r.Payload, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.ID)
}

// MarshalJSON writes unresolved results as null. A resolved result without
// a body is written as {} so it does not read back as unresolved.
func (r ResolvedResult) MarshalJSON() ([]byte, error) {
	if !r.Resolved {
		return []byte("null"), nil
	}
	if len(bytes.TrimSpace(r.Payload)) == 0 {
		return []byte("{}"), nil
	}
	return append([]byte(nil), r.Payload...), nil
}

func (r *ResolvedResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = Unresolved()
		return nil
	}
	*r = Resolved(trimmed)
	return nil
}

type EnsureSubscriptionAction string

const (
	EnsureActionExisting     EnsureSubscriptionAction = "existing"
	EnsureActionCreated      EnsureSubscriptionAction = "created"
	EnsureActionCreateFailed EnsureSubscriptionAction = "create_failed"
)

type EnsureSubscriptionRequest struct {
	Resource string
	TTL      time.Duration
}

type EnsureSubscriptionResult struct {
	Resource     string                   `json:"resource"`
	Action       EnsureSubscriptionAction `json:"action"`
	Matches      int                      `json:"matches"`
	Subscription *Subscription            `json:"subscription,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// TTLFromDays converts a whole-day subscription length into a duration.
func TTLFromDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Orchestration names shared by the ingress, the trigger and the workflows.
const (
	OrchestrationSubscriptionManager      = "subscription_manager"
	OrchestrationSubscriptionNotification = "subscription_notification"
)
