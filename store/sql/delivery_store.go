package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryRecord]
	now  func() time.Time
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *DeliveryStore) Create(ctx context.Context, delivery core.Delivery) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := deliveryFromDomain(delivery)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Delivery{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryStore) Get(ctx context.Context, id string) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := &deliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Delivery{}, fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, id)
		}
		return core.Delivery{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryStore) Update(ctx context.Context, delivery core.Delivery) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := deliveryFromDomain(delivery)
	record.UpdatedAt = s.now()
	result, err := s.db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return core.Delivery{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.Delivery{}, fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, delivery.ID)
	}
	return record.toDomain(), nil
}

// Claim is a conditional status flip: the UPDATE only lands when the row
// is still pending or failed, so two workers racing on the same delivery
// see exactly one winner.
func (s *DeliveryStore) Claim(ctx context.Context, id string) (core.Delivery, bool, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, false, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	result, err := s.db.NewUpdate().
		Model((*deliveryRecord)(nil)).
		Set("status = ?", string(core.DeliveryStatusInFlight)).
		Set("updated_at = ?", s.now()).
		Where("id = ?", id).
		Where("status IN (?, ?)", string(core.DeliveryStatusPending), string(core.DeliveryStatusFailed)).
		Exec(ctx)
	if err != nil {
		return core.Delivery{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.Delivery{}, false, err
	}
	if affected == 0 {
		// Either gone or already claimed; distinguish for the caller.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return core.Delivery{}, false, getErr
		}
		return core.Delivery{}, false, nil
	}
	claimed, err := s.Get(ctx, id)
	if err != nil {
		return core.Delivery{}, false, err
	}
	return claimed, true, nil
}

// ClaimDue flips due pending rows to in-flight one at a time, collecting
// the winners. Rows another worker grabs between the select and the
// conditional update simply drop out of the batch.
func (s *DeliveryStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]core.Delivery, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	candidates := []*deliveryRecord{}
	err := s.db.NewSelect().
		Model(&candidates).
		Where("?TableAlias.status = ?", string(core.DeliveryStatusPending)).
		Where("?TableAlias.next_attempt_at IS NOT NULL").
		Where("?TableAlias.next_attempt_at <= ?", now.UTC()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	claimed := []core.Delivery{}
	for _, candidate := range candidates {
		result, err := s.db.NewUpdate().
			Model((*deliveryRecord)(nil)).
			Set("status = ?", string(core.DeliveryStatusInFlight)).
			Set("updated_at = ?", s.now()).
			Where("id = ?", candidate.ID).
			Where("status = ?", string(core.DeliveryStatusPending)).
			Exec(ctx)
		if err != nil {
			return claimed, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return claimed, err
		}
		if affected == 0 {
			continue
		}
		candidate.Status = string(core.DeliveryStatusInFlight)
		claimed = append(claimed, candidate.toDomain())
	}
	return claimed, nil
}

func (s *DeliveryStore) ListByWebhook(ctx context.Context, webhookID string, offset, limit int) ([]core.Delivery, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	query := s.db.NewSelect().Model((*deliveryRecord)(nil))
	if webhookID = strings.TrimSpace(webhookID); webhookID != "" {
		query = query.Where("?TableAlias.webhook_id = ?", webhookID)
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	records := []*deliveryRecord{}
	query = query.Order("created_at DESC", "id DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx, &records); err != nil {
		return nil, 0, err
	}

	deliveries := make([]core.Delivery, 0, len(records))
	for _, record := range records {
		deliveries = append(deliveries, record.toDomain())
	}
	return deliveries, total, nil
}

// DeleteOlderThan prunes settled rows and their attempt history. Pending
// rows survive regardless of age so scheduled retries cannot be lost.
func (s *DeliveryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	removed := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*deliveryAttemptRecord)(nil)).
			Where("delivery_id IN (SELECT id FROM webhook_deliveries WHERE status != ? AND created_at < ?)",
				string(core.DeliveryStatusPending), cutoff.UTC()).
			Exec(ctx)
		if err != nil {
			return err
		}
		result, err := tx.NewDelete().
			Model((*deliveryRecord)(nil)).
			Where("status != ?", string(core.DeliveryStatusPending)).
			Where("created_at < ?", cutoff.UTC()).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *DeliveryStore) Stats(ctx context.Context, webhookID string) (core.DeliveryStats, error) {
	if s == nil || s.db == nil {
		return core.DeliveryStats{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	webhookID = strings.TrimSpace(webhookID)

	rows := []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}{}
	query := s.db.NewSelect().
		Model((*deliveryRecord)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status")
	if webhookID != "" {
		query = query.Where("?TableAlias.webhook_id = ?", webhookID)
	}
	if err := query.Scan(ctx, &rows); err != nil {
		return core.DeliveryStats{}, err
	}

	stats := core.DeliveryStats{WebhookID: webhookID}
	for _, row := range rows {
		switch core.DeliveryStatus(row.Status) {
		case core.DeliveryStatusPending:
			stats.Pending = row.Count
		case core.DeliveryStatusInFlight:
			stats.InFlight = row.Count
		case core.DeliveryStatusSucceeded:
			stats.Succeeded = row.Count
		case core.DeliveryStatusFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}
