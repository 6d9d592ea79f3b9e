package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-subscriptions/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrResultsNotFound = core.ErrResultsNotFound

// ResultStore persists resolved results one row per position. A batch is
// replaced as a whole inside one transaction, so saving the same batch
// twice leaves exactly one row per (batch_id, position).
type ResultStore struct {
	db   *bun.DB
	repo repository.Repository[*resultRecord]
}

func NewResultStore(db *bun.DB) (*ResultStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*resultRecord](db, resultHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid result repository wiring: %w", err)
		}
	}
	return &ResultStore{db: db, repo: repo}, nil
}

func (s *ResultStore) SaveResults(ctx context.Context, batchID string, results []core.ResolvedResult) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: result store is not configured")
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return fmt.Errorf("sqlstore: batch id is required")
	}
	now := time.Now().UTC()
	records := make([]*resultRecord, 0, len(results))
	for position, result := range results {
		records = append(records, newResultRecord(uuid.NewString(), batchID, position, result, now))
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			TableExpr("subscription_resolved_results").
			Where("batch_id = ?", batchID).
			Exec(ctx); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&records).Exec(ctx)
		return err
	})
}

func (s *ResultStore) ListResults(ctx context.Context, batchID string) ([]core.ResolvedResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: result store is not configured")
	}
	batchID = strings.TrimSpace(batchID)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("batch_id", "=", batchID),
		repository.OrderBy("position ASC"),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sqlstore: %w for batch %q", ErrResultsNotFound, batchID)
	}
	out := make([]core.ResolvedResult, len(records))
	for i, record := range records {
		out[i] = record.toDomain()
	}
	return out, nil
}

// ListByResource returns every resolved payload recorded for a resource id,
// newest first.
func (s *ResultStore) ListByResource(ctx context.Context, resourceID string) ([]core.ResolvedResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: result store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("resource_id", "=", strings.TrimSpace(resourceID)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.resolved = ?", true)
		}),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.ResolvedResult, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
