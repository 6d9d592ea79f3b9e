package gojob

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-job/queue/adapters/postgres"
)

// Table names used by the durable run queue.
const (
	QueueTable       = "subscriptions_jobs"
	QueueDLQTable    = "subscriptions_jobs_dlq"
	QueueStatusTable = "subscriptions_job_status"
)

// DefaultVisibilityTimeout is how long a dequeued run stays leased before
// another worker may claim it.
const DefaultVisibilityTimeout = 2 * time.Minute

// OpenRunQueue migrates the go-job queue tables on db and returns the
// adapter used both to enqueue runs and to feed the run worker.
func OpenRunQueue(ctx context.Context, db *sql.DB, dialect postgres.Dialect, opts ...postgres.Option) (*postgres.Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("gojob: run queue requires a database")
	}
	options := []postgres.Option{
		postgres.WithDialect(dialect),
		postgres.WithTableName(QueueTable),
		postgres.WithDLQTableName(QueueDLQTable),
		postgres.WithStatusTableName(QueueStatusTable),
		postgres.WithVisibilityTimeout(DefaultVisibilityTimeout),
	}
	options = append(options, opts...)

	storage := postgres.NewStorage(db, options...)
	if err := storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("gojob: migrate run queue: %w", err)
	}
	return postgres.NewAdapter(storage), nil
}
