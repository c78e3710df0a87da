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

type WebhookStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookRecord]
	now  func() time.Time
}

func NewWebhookStore(db *bun.DB) (*WebhookStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookRecord](db, webhookHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook repository wiring: %w", err)
		}
	}
	return &WebhookStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *WebhookStore) Create(ctx context.Context, webhook core.Webhook) (core.Webhook, error) {
	if s == nil || s.db == nil {
		return core.Webhook{}, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	record := webhookFromDomain(webhook)
	if record.EventTypes == nil {
		record.EventTypes = []string{}
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Webhook{}, err
	}
	return record.toDomain(), nil
}

func (s *WebhookStore) Get(ctx context.Context, id string) (core.Webhook, error) {
	if s == nil || s.db == nil {
		return core.Webhook{}, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	record := &webhookRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Webhook{}, fmt.Errorf("%w: %s", core.ErrWebhookNotFound, id)
		}
		return core.Webhook{}, err
	}
	return record.toDomain(), nil
}

func (s *WebhookStore) Update(ctx context.Context, webhook core.Webhook) (core.Webhook, error) {
	if s == nil || s.db == nil {
		return core.Webhook{}, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	record := webhookFromDomain(webhook)
	if record.EventTypes == nil {
		record.EventTypes = []string{}
	}
	record.UpdatedAt = s.now()
	result, err := s.db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return core.Webhook{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.Webhook{}, fmt.Errorf("%w: %s", core.ErrWebhookNotFound, webhook.ID)
	}
	return record.toDomain(), nil
}

// Delete soft-deletes the row. Bun's soft_delete tag turns this into an
// UPDATE on deleted_at, so delivery rows keep a resolvable webhook id.
func (s *WebhookStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*webhookRecord)(nil)).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrWebhookNotFound, id)
	}
	return nil
}

func (s *WebhookStore) List(ctx context.Context, filter core.WebhookFilter) ([]core.Webhook, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	query := s.db.NewSelect().Model((*webhookRecord)(nil))
	if storeID := strings.TrimSpace(filter.StoreID); storeID != "" {
		query = query.Where("?TableAlias.store_id = ?", storeID)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where(
			"(?TableAlias.all_events OR ?TableAlias.event_types LIKE ?)",
			"%\""+strings.ToLower(eventType)+"\"%",
		)
	}
	if filter.ActiveOnly {
		query = query.Where("?TableAlias.is_active")
	}
	if filter.AutoDisabledOnly {
		query = query.Where("?TableAlias.auto_disabled")
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	records := []*webhookRecord{}
	query = query.Order("created_at ASC", "id ASC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx, &records); err != nil {
		return nil, 0, err
	}

	webhooks := make([]core.Webhook, 0, len(records))
	for _, record := range records {
		webhooks = append(webhooks, record.toDomain())
	}
	return webhooks, total, nil
}

// ListMatching narrows candidates in SQL (active, store scope) and applies
// the subscription match in Go so the event-type semantics live in one
// place regardless of dialect.
func (s *WebhookStore) ListMatching(ctx context.Context, eventType string, storeID string) ([]core.Webhook, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	records := []*webhookRecord{}
	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_active")
	if storeID = strings.TrimSpace(storeID); storeID != "" {
		query = query.Where("(?TableAlias.store_id = '' OR ?TableAlias.store_id = ?)", storeID)
	}
	if err := query.Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, err
	}

	matched := []core.Webhook{}
	for _, record := range records {
		webhook := record.toDomain()
		if webhook.Matches(eventType, storeID) {
			matched = append(matched, webhook)
		}
	}
	return matched, nil
}

func (s *WebhookStore) RecordFailure(ctx context.Context, id string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*webhookRecord)(nil)).
		Set("consecutive_failures = consecutive_failures + 1").
		Set("updated_at = ?", s.now()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return 0, fmt.Errorf("%w: %s", core.ErrWebhookNotFound, id)
	}

	var count int
	err = s.db.NewSelect().
		Model((*webhookRecord)(nil)).
		Column("consecutive_failures").
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *WebhookStore) ResetFailures(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*webhookRecord)(nil)).
		Set("consecutive_failures = 0").
		Set("updated_at = ?", s.now()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func (s *WebhookStore) Disable(ctx context.Context, id string, auto bool, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*webhookRecord)(nil)).
		Set("is_active = ?", false).
		Set("auto_disabled = ?", auto).
		Set("disabled_reason = ?", strings.TrimSpace(reason)).
		Set("updated_at = ?", s.now()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrWebhookNotFound, id)
	}
	return nil
}

// ReEnable is conditional on auto_disabled so it never reverses an
// operator's manual switch-off. Reports whether a row actually changed.
func (s *WebhookStore) ReEnable(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: webhook store is not configured")
	}
	result, err := s.db.NewUpdate().
		Model((*webhookRecord)(nil)).
		Set("is_active = ?", true).
		Set("auto_disabled = ?", false).
		Set("disabled_reason = ?", "").
		Set("consecutive_failures = 0").
		Set("updated_at = ?", s.now()).
		Where("id = ?", strings.TrimSpace(id)).
		Where("auto_disabled").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
