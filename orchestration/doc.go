// Package orchestration runs named orchestrations as a sequence of
// replay-safe steps.
//
// Each instance is a persisted record moving pending -> running ->
// completed|failed. Each step writes a record keyed by (instance id, step
// name); running an instance again returns completed step outputs from
// those records instead of invoking the step body. Workers pull instance
// ids from a core.JobDequeuer and redeliver failures within a bounded
// retry policy.
package orchestration
