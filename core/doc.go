// Package core holds the subscription and notification domain: entities,
// contracts for the provider client, result sink and orchestration starter,
// the subscription lifecycle manager and the notification batch resolver.
// Transport, persistence and ingress adapters depend on core, never the
// other way around.
package core
