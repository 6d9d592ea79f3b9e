package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-subscriptions/orchestration"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StepStore keeps one row per (instance id, step name). Saving a step
// overwrites the previous outcome so a retried step keeps a single record.
type StepStore struct {
	db   *bun.DB
	repo repository.Repository[*stepRecord]
}

func NewStepStore(db *bun.DB) (*StepStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*stepRecord](db, stepHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid step repository wiring: %w", err)
		}
	}
	return &StepStore{db: db, repo: repo}, nil
}

func (s *StepStore) GetStep(ctx context.Context, instanceID string, name string) (orchestration.StepRecord, bool, error) {
	if s == nil || s.repo == nil {
		return orchestration.StepRecord{}, false, fmt.Errorf("sqlstore: step store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("instance_id", "=", strings.TrimSpace(instanceID)),
		repository.SelectBy("name", "=", strings.TrimSpace(name)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return orchestration.StepRecord{}, false, err
	}
	if len(records) == 0 {
		return orchestration.StepRecord{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *StepStore) SaveStep(ctx context.Context, step orchestration.StepRecord) (orchestration.StepRecord, error) {
	if s == nil || s.db == nil {
		return orchestration.StepRecord{}, fmt.Errorf("sqlstore: step store is not configured")
	}
	step.InstanceID = strings.TrimSpace(step.InstanceID)
	step.Name = strings.TrimSpace(step.Name)
	if step.InstanceID == "" || step.Name == "" {
		return orchestration.StepRecord{}, fmt.Errorf("sqlstore: step record requires instance id and name")
	}
	now := time.Now().UTC()

	var out orchestration.StepRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findStepTx(ctx, tx, step.InstanceID, step.Name)
		if err != nil {
			return err
		}
		record := newStepRecord(step, now)
		if existing == nil {
			record.ID = uuid.NewString()
			if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
				return err
			}
			out = record.toDomain()
			return nil
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if _, err := tx.NewUpdate().
			Model(record).
			Column("status", "input", "output", "error", "attempts", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx); err != nil {
			return err
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return orchestration.StepRecord{}, err
	}
	return out, nil
}

func (s *StepStore) ListSteps(ctx context.Context, instanceID string) ([]orchestration.StepRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: step store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("instance_id", "=", strings.TrimSpace(instanceID)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at ASC, ?TableAlias.name ASC")
		}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]orchestration.StepRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findStepTx(ctx context.Context, tx bun.Tx, instanceID string, name string) (*stepRecord, error) {
	record := &stepRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.instance_id = ?", instanceID).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}
