package webhooks

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	webhookcommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
	webhookquery "github.com/goliatone/go-webhooks/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.CreateWebhook == nil || commands.Trigger == nil || commands.RetryDelivery == nil || commands.Cleanup == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetWebhook == nil || queries.DeliveryStats == nil || queries.VerifySignature == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.TriggerResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().Trigger.Execute(ctx, webhookcommand.TriggerMessage{
		Event: core.Event{Type: "order.created"},
	}); err != nil {
		t.Fatalf("execute trigger command: %v", err)
	}
	if svc.lastTrigger.Type != "order.created" {
		t.Fatalf("unexpected trigger delegation payload: %#v", svc.lastTrigger)
	}
	result, ok := collector.Load()
	if !ok || result.MatchedCount != 1 {
		t.Fatalf("expected stored trigger result, got %#v ok=%v", result, ok)
	}

	webhook, err := facade.Queries().GetWebhook.Query(context.Background(), webhookquery.GetWebhookMessage{
		WebhookID: "wh_1",
	})
	if err != nil {
		t.Fatalf("query get webhook: %v", err)
	}
	if webhook.ID != "wh_1" {
		t.Fatalf("unexpected webhook query result: %#v", webhook)
	}

	valid, err := facade.Queries().VerifySignature.Query(context.Background(), webhookquery.VerifySignatureMessage{
		WebhookID: "wh_1",
		Payload:   []byte(`{}`),
		Signature: "deadbeef",
	})
	if err != nil {
		t.Fatalf("query verify signature: %v", err)
	}
	if !valid {
		t.Fatalf("expected signature verification delegation")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastTrigger core.Event
}

func (s *stubFacadeService) CreateWebhook(context.Context, core.CreateWebhookRequest) (core.Webhook, error) {
	return core.Webhook{ID: "wh_1"}, nil
}

func (s *stubFacadeService) UpdateWebhook(context.Context, core.UpdateWebhookRequest) (core.Webhook, error) {
	return core.Webhook{ID: "wh_1"}, nil
}

func (s *stubFacadeService) DeleteWebhook(context.Context, string) error {
	return nil
}

func (s *stubFacadeService) ReEnableWebhook(context.Context, string) (core.Webhook, error) {
	return core.Webhook{ID: "wh_1", IsActive: true}, nil
}

func (s *stubFacadeService) Trigger(_ context.Context, event core.Event) (core.TriggerResult, error) {
	s.lastTrigger = event
	return core.TriggerResult{MatchedCount: 1}, nil
}

func (s *stubFacadeService) TestWebhook(context.Context, string) (core.TestResult, error) {
	return core.TestResult{Success: true, StatusCode: 200}, nil
}

func (s *stubFacadeService) RetryDelivery(context.Context, string) (core.Delivery, error) {
	return core.Delivery{ID: "dlv_1"}, nil
}

func (s *stubFacadeService) ProcessPendingRetries(context.Context, int) (core.RetrySweepResult, error) {
	return core.RetrySweepResult{}, nil
}

func (s *stubFacadeService) CleanupDeliveries(context.Context, int) (int, error) {
	return 0, nil
}

func (s *stubFacadeService) GetWebhook(_ context.Context, webhookID string) (core.Webhook, error) {
	return core.Webhook{ID: webhookID}, nil
}

func (s *stubFacadeService) ListWebhooks(context.Context, core.WebhookFilter) ([]core.Webhook, int, error) {
	return nil, 0, nil
}

func (s *stubFacadeService) ListAutoDisabled(context.Context, int, int) ([]core.Webhook, int, error) {
	return nil, 0, nil
}

func (s *stubFacadeService) GetDelivery(context.Context, string) (core.Delivery, error) {
	return core.Delivery{ID: "dlv_1"}, nil
}

func (s *stubFacadeService) ListDeliveries(context.Context, string, int, int) ([]core.Delivery, int, error) {
	return nil, 0, nil
}

func (s *stubFacadeService) ListAttempts(context.Context, string) ([]core.DeliveryAttempt, error) {
	return nil, nil
}

func (s *stubFacadeService) DeliveryStats(context.Context, string) (core.DeliveryStats, error) {
	return core.DeliveryStats{}, nil
}

func (s *stubFacadeService) VerifySignature(context.Context, string, []byte, string) (bool, error) {
	return true, nil
}
