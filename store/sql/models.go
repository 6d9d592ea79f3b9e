package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type instanceRecord struct {
	bun.BaseModel `bun:"table:subscription_orchestration_instances,alias:soi"`

	ID          string     `bun:"id,pk"`
	Name        string     `bun:"name,notnull"`
	Status      string     `bun:"status,notnull"`
	Input       string     `bun:"input,notnull"`
	Output      string     `bun:"output,notnull"`
	Error       string     `bun:"error,notnull"`
	Attempts    int        `bun:"attempts,notnull"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

type stepRecord struct {
	bun.BaseModel `bun:"table:subscription_orchestration_steps,alias:sos"`

	ID         string    `bun:"id,pk"`
	InstanceID string    `bun:"instance_id,notnull"`
	Name       string    `bun:"name,notnull"`
	Status     string    `bun:"status,notnull"`
	Input      string    `bun:"input,notnull"`
	Output     string    `bun:"output,notnull"`
	Error      string    `bun:"error,notnull"`
	Attempts   int       `bun:"attempts,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type resultRecord struct {
	bun.BaseModel `bun:"table:subscription_resolved_results,alias:srr"`

	ID         string    `bun:"id,pk"`
	BatchID    string    `bun:"batch_id,notnull"`
	Position   int       `bun:"position,notnull"`
	ResourceID string    `bun:"resource_id,notnull"`
	Resolved   bool      `bun:"resolved,notnull"`
	Payload    string    `bun:"payload,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
