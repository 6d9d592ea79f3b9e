package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Logger names handed to each component of the subscription pipeline.
const (
	NameService       = "subscriptions"
	NameWebhooks      = "subscriptions.webhooks"
	NameOrchestration = "subscriptions.orchestration"
	NameWorker        = "subscriptions.worker"
	NameSchedule      = "subscriptions.schedule"
	NameGraph         = "subscriptions.graph"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Loggers holds one resolved logger per pipeline component.
type Loggers struct {
	Provider      glog.LoggerProvider
	Service       glog.Logger
	Webhooks      glog.Logger
	Orchestration glog.Logger
	Worker        glog.Logger
	Schedule      glog.Logger
	Graph         glog.Logger
}

// ResolveComponents resolves the service logger first, then asks the
// resulting provider for a named logger per component.
func ResolveComponents(provider glog.LoggerProvider, logger glog.Logger) Loggers {
	resolvedProvider, serviceLogger := Resolve(NameService, provider, logger)
	named := func(name string) glog.Logger {
		if resolvedProvider == nil {
			return serviceLogger
		}
		if l := resolvedProvider.GetLogger(strings.TrimSpace(name)); l != nil {
			return l
		}
		return serviceLogger
	}
	return Loggers{
		Provider:      resolvedProvider,
		Service:       serviceLogger,
		Webhooks:      named(NameWebhooks),
		Orchestration: named(NameOrchestration),
		Worker:        named(NameWorker),
		Schedule:      named(NameSchedule),
		Graph:         named(NameGraph),
	}
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves glog logger/provider then returns equivalent go-job adapters.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
