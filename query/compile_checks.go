package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

var (
	_ gocmd.Querier[GetInstanceMessage, orchestration.Instance]   = (*GetInstanceQuery)(nil)
	_ gocmd.Querier[ListStepsMessage, []orchestration.StepRecord] = (*ListStepsQuery)(nil)
	_ gocmd.Querier[ListResultsMessage, []core.ResolvedResult]    = (*ListResultsQuery)(nil)
	_ InstanceReader                                              = (*orchestration.Runtime)(nil)
)
