package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type AttemptStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryAttemptRecord]
}

func NewAttemptStore(db *bun.DB) (*AttemptStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryAttemptRecord](db, attemptHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid attempt repository wiring: %w", err)
		}
	}
	return &AttemptStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *AttemptStore) Append(ctx context.Context, attempt core.DeliveryAttempt) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: attempt store is not configured")
	}
	record := attemptFromDomain(attempt)
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

func (s *AttemptStore) ListByDelivery(ctx context.Context, deliveryID string) ([]core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: attempt store is not configured")
	}
	records := []*deliveryAttemptRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.delivery_id = ?", strings.TrimSpace(deliveryID)).
		Order("attempt ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	attempts := make([]core.DeliveryAttempt, 0, len(records))
	for _, record := range records {
		attempts = append(attempts, record.toDomain())
	}
	return attempts, nil
}
