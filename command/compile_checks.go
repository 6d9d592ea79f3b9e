package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EnsureSubscriptionMessage]   = (*EnsureSubscriptionCommand)(nil)
	_ gocmd.Commander[ResolveNotificationsMessage] = (*ResolveNotificationsCommand)(nil)
	_ gocmd.Commander[StartOrchestrationMessage]   = (*StartOrchestrationCommand)(nil)
)
