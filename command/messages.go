package command

import (
	"strings"

	"github.com/goliatone/go-subscriptions/core"
)

const (
	TypeEnsureSubscription   = "subscriptions.command.subscription.ensure"
	TypeResolveNotifications = "subscriptions.command.notifications.resolve"
	TypeStartOrchestration   = "subscriptions.command.orchestration.start"
)

type EnsureSubscriptionMessage struct {
	Request core.EnsureSubscriptionRequest
}

func (EnsureSubscriptionMessage) Type() string { return TypeEnsureSubscription }

func (m EnsureSubscriptionMessage) Validate() error {
	if m.Request.TTL < 0 {
		return commandValidationError("ttl", "must not be negative")
	}
	return nil
}

type ResolveNotificationsMessage struct {
	Notifications []core.ChangeNotification
}

func (ResolveNotificationsMessage) Type() string { return TypeResolveNotifications }

func (m ResolveNotificationsMessage) Validate() error {
	if len(m.Notifications) == 0 {
		return commandValidationError("notifications", "at least one notification is required")
	}
	return nil
}

// StartOrchestrationMessage starts a registered orchestration by name with
// an optional JSON-encodable input.
type StartOrchestrationMessage struct {
	Name  string
	Input any
}

func (StartOrchestrationMessage) Type() string { return TypeStartOrchestration }

func (m StartOrchestrationMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return commandValidationError("name", "orchestration name is required")
	}
	return nil
}

type StartOrchestrationResult struct {
	InstanceID string `json:"instanceId"`
}
