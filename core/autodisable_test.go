package core

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAutoDisable_TriggersAtThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 3
	h := newTestHarness(cfg, scriptedResponse{status: http.StatusInternalServerError})
	webhook := h.createWebhook(SubscribeAll(), func(w *Webhook) { w.RetryEnabled = false })

	// Retries disabled, so every 500 is an immediate terminal failure.
	for i := 0; i < 3; i++ {
		if _, err := h.service.Trigger(context.Background(), Event{Type: "order.created"}); err != nil {
			t.Fatalf("trigger %d: %v", i, err)
		}
		h.service.Drain()
	}

	stored, err := h.webhooks.Get(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if stored.IsActive {
		t.Fatal("expected webhook disabled at threshold")
	}
	if !stored.AutoDisabled {
		t.Fatal("expected auto-disabled flag set")
	}
	if !strings.Contains(stored.DisabledReason, "auto-disabled") {
		t.Fatalf("expected reason to mention auto-disable, got %q", stored.DisabledReason)
	}
}

func TestAutoDisable_RetryableFailuresWithinBudgetDoNotCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 3
	cfg.Retry.MaxRetries = 10
	h := newTestHarness(cfg, scriptedResponse{status: http.StatusInternalServerError})
	webhook := h.createWebhook(SubscribeAll())

	// One delivery, three 500s, all rescheduled inside the retry budget.
	// A still-pending delivery is not a verdict on the subscriber.
	triggerOne(t, h, "order.created")
	for i := 0; i < 2; i++ {
		h.clock.Advance(24 * time.Hour)
		if _, err := h.service.ProcessPendingRetries(context.Background(), 10); err != nil {
			t.Fatalf("sweep %d: %v", i+1, err)
		}
	}

	stored, err := h.webhooks.Get(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if !stored.IsActive {
		t.Fatal("retryable attempts inside the budget must not disable the webhook")
	}
	if stored.ConsecutiveFailures != 0 {
		t.Fatalf("expected untouched failure streak, got %d", stored.ConsecutiveFailures)
	}
}

func TestAutoDisable_ExhaustedRetryBudgetCountsAsFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 1
	cfg.Retry.MaxRetries = 1
	h := newTestHarness(cfg, scriptedResponse{status: http.StatusInternalServerError})
	webhook := h.createWebhook(SubscribeAll())

	delivery := triggerOne(t, h, "order.created")
	if delivery.Status != DeliveryStatusPending {
		t.Fatalf("expected pending retry after first 500, got %s", delivery.Status)
	}

	stored, err := h.webhooks.Get(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if !stored.IsActive || stored.ConsecutiveFailures != 0 {
		t.Fatalf("streak must not move before the budget is spent, got %+v", stored)
	}

	h.clock.Advance(24 * time.Hour)
	if _, err := h.service.ProcessPendingRetries(context.Background(), 10); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	final, err := h.service.GetDelivery(context.Background(), delivery.ID)
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if final.Status != DeliveryStatusFailed {
		t.Fatalf("expected terminal failure after exhausted budget, got %s", final.Status)
	}
	stored, err = h.webhooks.Get(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if stored.IsActive || !stored.AutoDisabled {
		t.Fatalf("exhausted budget must feed the streak, got %+v", stored)
	}
}

func TestAutoDisable_SuccessResetsStreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 3
	h := newTestHarness(cfg,
		scriptedResponse{status: http.StatusInternalServerError},
		scriptedResponse{status: http.StatusInternalServerError},
		scriptedResponse{status: http.StatusOK},
		scriptedResponse{status: http.StatusInternalServerError},
	)
	webhook := h.createWebhook(SubscribeAll(), func(w *Webhook) { w.RetryEnabled = false })

	for i := 0; i < 4; i++ {
		if _, err := h.service.Trigger(context.Background(), Event{Type: "order.created"}); err != nil {
			t.Fatalf("trigger %d: %v", i, err)
		}
		h.service.Drain()
	}

	stored, err := h.webhooks.Get(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if !stored.IsActive {
		t.Fatal("success mid-streak must prevent auto-disable")
	}
	if stored.ConsecutiveFailures != 1 {
		t.Fatalf("expected streak of 1 after reset, got %d", stored.ConsecutiveFailures)
	}
}

func TestAutoDisable_PendingDeliveriesDrainWithoutSending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 1
	h := newTestHarness(cfg,
		scriptedResponse{status: http.StatusInternalServerError},
		scriptedResponse{status: http.StatusGone},
	)
	h.createWebhook(SubscribeAll())

	// First event lands a retryable 500 and stays pending.
	pending := triggerOne(t, h, "order.created")
	if pending.Status != DeliveryStatusPending {
		t.Fatalf("expected pending retry, got %s", pending.Status)
	}

	// Second event fails terminally and trips the threshold.
	terminal := triggerOne(t, h, "order.created")
	if terminal.Status != DeliveryStatusFailed {
		t.Fatalf("expected terminal failure, got %s", terminal.Status)
	}

	sent := h.client.requestCount()
	h.clock.Advance(24 * time.Hour)
	if _, err := h.service.ProcessPendingRetries(context.Background(), 10); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	final, err := h.service.GetDelivery(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != DeliveryStatusFailed {
		t.Fatalf("expected pending delivery to fail terminally, got %s", final.Status)
	}
	if h.client.requestCount() != sent {
		t.Fatal("auto-disabled webhook must not receive traffic")
	}
}

func TestReEnableWebhook_ClearsAutoDisableState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDisable.Threshold = 1
	h := newTestHarness(cfg, scriptedResponse{status: http.StatusInternalServerError})
	webhook := h.createWebhook(SubscribeAll(), func(w *Webhook) { w.RetryEnabled = false })

	triggerOne(t, h, "order.created")

	disabled, total, err := h.service.ListAutoDisabled(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list auto-disabled: %v", err)
	}
	if total != 1 || len(disabled) != 1 || disabled[0].ID != webhook.ID {
		t.Fatalf("expected the webhook in the auto-disabled list, got %d", total)
	}

	restored, err := h.service.ReEnableWebhook(context.Background(), webhook.ID)
	if err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if !restored.IsActive || restored.AutoDisabled {
		t.Fatalf("expected active webhook, got %+v", restored)
	}
	if restored.ConsecutiveFailures != 0 {
		t.Fatal("re-enable must reset the failure streak")
	}
}

func TestReEnableWebhook_RejectsManuallyDisabled(t *testing.T) {
	h := newTestHarness(DefaultConfig())
	webhook := h.createWebhook(SubscribeAll())

	inactive := false
	if _, err := h.service.UpdateWebhook(context.Background(), UpdateWebhookRequest{
		WebhookID: webhook.ID,
		IsActive:  &inactive,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := h.service.ReEnableWebhook(context.Background(), webhook.ID); err == nil {
		t.Fatal("expected error re-enabling a manually disabled webhook")
	}
}
