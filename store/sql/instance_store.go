package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-subscriptions/orchestration"
	"github.com/uptrace/bun"
)

type InstanceStore struct {
	db   *bun.DB
	repo repository.Repository[*instanceRecord]
}

func NewInstanceStore(db *bun.DB) (*InstanceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*instanceRecord](db, instanceHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid instance repository wiring: %w", err)
		}
	}
	return &InstanceStore{db: db, repo: repo}, nil
}

func (s *InstanceStore) CreateInstance(ctx context.Context, instance orchestration.Instance) (orchestration.Instance, error) {
	if s == nil || s.repo == nil {
		return orchestration.Instance{}, fmt.Errorf("sqlstore: instance store is not configured")
	}
	instance.ID = strings.TrimSpace(instance.ID)
	if instance.ID == "" {
		return orchestration.Instance{}, fmt.Errorf("sqlstore: instance id is required")
	}
	if strings.TrimSpace(instance.Name) == "" {
		return orchestration.Instance{}, fmt.Errorf("sqlstore: instance name is required")
	}
	record := newInstanceRecord(instance, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueConstraintError(err) {
			return orchestration.Instance{}, fmt.Errorf("sqlstore: instance %q already exists: %w", instance.ID, err)
		}
		return orchestration.Instance{}, err
	}
	return created.toDomain(), nil
}

func (s *InstanceStore) GetInstance(ctx context.Context, id string) (orchestration.Instance, error) {
	if s == nil || s.repo == nil {
		return orchestration.Instance{}, fmt.Errorf("sqlstore: instance store is not configured")
	}
	record, err := s.find(ctx, id)
	if err != nil {
		return orchestration.Instance{}, err
	}
	return record.toDomain(), nil
}

func (s *InstanceStore) UpdateInstance(ctx context.Context, instance orchestration.Instance) (orchestration.Instance, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return orchestration.Instance{}, fmt.Errorf("sqlstore: instance store is not configured")
	}
	existing, err := s.find(ctx, instance.ID)
	if err != nil {
		return orchestration.Instance{}, err
	}
	record := newInstanceRecord(instance, time.Now().UTC())
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt

	if _, err := s.db.NewUpdate().
		Model(record).
		Column("name", "status", "input", "output", "error", "attempts", "updated_at", "completed_at").
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return orchestration.Instance{}, err
	}
	return record.toDomain(), nil
}

// ListByStatus returns instances in status, oldest update first.
func (s *InstanceStore) ListByStatus(ctx context.Context, status orchestration.Status, limit int) ([]orchestration.Instance, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: instance store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.SelectBy("status", "=", string(status)),
		repository.OrderBy("updated_at ASC"),
	}
	if limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	out := make([]orchestration.Instance, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *InstanceStore) find(ctx context.Context, id string) (*instanceRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, orchestration.ErrInstanceNotFound
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", id),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, orchestration.ErrInstanceNotFound
	}
	return records[0], nil
}
