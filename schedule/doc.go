// Package schedule fires the subscription manager orchestration on a
// six-field cron expression. The default renews every five minutes.
package schedule
