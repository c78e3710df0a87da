package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (s *Service) GetDelivery(ctx context.Context, deliveryID string) (Delivery, error) {
	if s == nil || s.deliveryStore == nil {
		return Delivery{}, fmt.Errorf("core: delivery store is required")
	}
	delivery, err := s.deliveryStore.Get(ctx, strings.TrimSpace(deliveryID))
	if err != nil {
		return Delivery{}, s.mapError(err)
	}
	return delivery, nil
}

func (s *Service) ListDeliveries(ctx context.Context, webhookID string, offset, limit int) ([]Delivery, int, error) {
	if s == nil || s.deliveryStore == nil {
		return nil, 0, fmt.Errorf("core: delivery store is required")
	}
	deliveries, total, err := s.deliveryStore.ListByWebhook(ctx, strings.TrimSpace(webhookID), offset, limit)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return deliveries, total, nil
}

func (s *Service) ListAttempts(ctx context.Context, deliveryID string) ([]DeliveryAttempt, error) {
	if s == nil || s.attemptStore == nil {
		return nil, fmt.Errorf("core: attempt store is required")
	}
	attempts, err := s.attemptStore.ListByDelivery(ctx, strings.TrimSpace(deliveryID))
	if err != nil {
		return nil, s.mapError(err)
	}
	return attempts, nil
}

func (s *Service) DeliveryStats(ctx context.Context, webhookID string) (DeliveryStats, error) {
	if s == nil || s.deliveryStore == nil {
		return DeliveryStats{}, fmt.Errorf("core: delivery store is required")
	}
	stats, err := s.deliveryStore.Stats(ctx, strings.TrimSpace(webhookID))
	if err != nil {
		return DeliveryStats{}, s.mapError(err)
	}
	return stats, nil
}

// CleanupDeliveries prunes delivery history older than daysToKeep days.
// Pending deliveries survive regardless of age so scheduled retries are
// never lost to retention; rerunning with the same cutoff is a no-op.
func (s *Service) CleanupDeliveries(ctx context.Context, daysToKeep int) (removed int, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "delivery_cleanup", err, fields)
	}()

	if s == nil || s.deliveryStore == nil {
		return 0, fmt.Errorf("core: delivery store is required")
	}
	if daysToKeep <= 0 {
		daysToKeep = s.config.Cleanup.RetentionDays
	}
	if daysToKeep <= 0 {
		daysToKeep = DefaultConfig().Cleanup.RetentionDays
	}

	cutoff := s.clockNow().Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	removed, err = s.deliveryStore.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}

	fields["removed"] = removed
	fields["days_to_keep"] = daysToKeep
	return removed, nil
}
