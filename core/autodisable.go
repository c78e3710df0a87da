package core

import (
	"context"
	"fmt"
	"strings"
)

// noteDeliverySuccess resets the webhook's consecutive-failure counter.
// Counters track attempts, not deliveries: one success anywhere clears
// the streak.
func (s *Service) noteDeliverySuccess(ctx context.Context, webhook Webhook) {
	if s == nil || s.webhookStore == nil || webhook.ID == "" {
		return
	}
	if webhook.ConsecutiveFailures == 0 {
		return
	}
	if err := s.webhookStore.ResetFailures(ctx, webhook.ID); err != nil {
		s.logError(ctx, "failed to reset failure counter", map[string]any{
			"webhook_id": webhook.ID,
			"error":      err.Error(),
		})
	}
}

// noteDeliveryFailure bumps the consecutive-failure counter and disables
// the webhook once the streak reaches the configured threshold. Disabling
// stops future dispatch; deliveries already pending still drain through
// the executor, which fails them without a send.
func (s *Service) noteDeliveryFailure(ctx context.Context, webhook Webhook) {
	if s == nil || s.webhookStore == nil || webhook.ID == "" {
		return
	}
	count, err := s.webhookStore.RecordFailure(ctx, webhook.ID)
	if err != nil {
		s.logError(ctx, "failed to record delivery failure", map[string]any{
			"webhook_id": webhook.ID,
			"error":      err.Error(),
		})
		return
	}

	threshold := s.config.AutoDisable.Threshold
	if threshold <= 0 {
		return
	}
	if count < threshold {
		return
	}

	reason := fmt.Sprintf("auto-disabled after %d consecutive delivery failures", count)
	if err := s.webhookStore.Disable(ctx, webhook.ID, true, reason); err != nil {
		s.logError(ctx, "failed to auto-disable webhook", map[string]any{
			"webhook_id": webhook.ID,
			"error":      err.Error(),
		})
		return
	}
	s.logInfo(ctx, "webhook auto-disabled", map[string]any{
		"webhook_id": webhook.ID,
		"failures":   count,
	})
	s.recordCounter(ctx, "webhooks.auto_disable.total", 1, map[string]string{
		"webhook_id": webhook.ID,
	})
}

func (s *Service) ListAutoDisabled(ctx context.Context, offset, limit int) ([]Webhook, int, error) {
	if s == nil || s.webhookStore == nil {
		return nil, 0, fmt.Errorf("core: webhook store is required")
	}
	webhooks, total, err := s.webhookStore.List(ctx, WebhookFilter{
		AutoDisabledOnly: true,
		Offset:           offset,
		Limit:            limit,
	})
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return webhooks, total, nil
}

// ReEnableWebhook clears an automatic deactivation and zeroes the failure
// streak. It refuses webhooks an operator disabled by hand; those come
// back through UpdateWebhook so the two off switches stay independent.
func (s *Service) ReEnableWebhook(ctx context.Context, webhookID string) (webhook Webhook, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"webhook_id": webhookID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "webhook_reenable", err, fields)
	}()

	if s == nil || s.webhookStore == nil {
		return Webhook{}, fmt.Errorf("core: webhook store is required")
	}
	webhookID = strings.TrimSpace(webhookID)

	reenabled, err := s.webhookStore.ReEnable(ctx, webhookID)
	if err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}
	if !reenabled {
		err = s.mapError(fmt.Errorf("core: webhook %q was not auto-disabled", webhookID))
		return Webhook{}, err
	}

	webhook, err = s.webhookStore.Get(ctx, webhookID)
	if err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}
	return webhook, nil
}
