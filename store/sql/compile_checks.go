package sqlstore

import (
	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/orchestration"
)

var (
	_ orchestration.InstanceStore = (*InstanceStore)(nil)
	_ orchestration.StepStore     = (*StepStore)(nil)
	_ core.ResultSink             = (*ResultStore)(nil)
	_ core.ResultReader           = (*ResultStore)(nil)
	_ core.ResultSink             = (*CachedResultStore)(nil)
	_ core.ResultReader           = (*CachedResultStore)(nil)
)
