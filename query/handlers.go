package query

import (
	"context"

	"github.com/goliatone/go-webhooks/core"
)

type WebhookReader interface {
	GetWebhook(ctx context.Context, webhookID string) (core.Webhook, error)
	ListWebhooks(ctx context.Context, filter core.WebhookFilter) ([]core.Webhook, int, error)
	ListAutoDisabled(ctx context.Context, offset, limit int) ([]core.Webhook, int, error)
}

type DeliveryReader interface {
	GetDelivery(ctx context.Context, deliveryID string) (core.Delivery, error)
	ListDeliveries(ctx context.Context, webhookID string, offset, limit int) ([]core.Delivery, int, error)
	ListAttempts(ctx context.Context, deliveryID string) ([]core.DeliveryAttempt, error)
	DeliveryStats(ctx context.Context, webhookID string) (core.DeliveryStats, error)
}

type SignatureVerifier interface {
	VerifySignature(ctx context.Context, webhookID string, payload []byte, signature string) (bool, error)
}

// WebhookPage bundles a listing with its unpaged total.
type WebhookPage struct {
	Webhooks []core.Webhook
	Total    int
}

type DeliveryPage struct {
	Deliveries []core.Delivery
	Total      int
}

type GetWebhookQuery struct {
	reader WebhookReader
}

func NewGetWebhookQuery(reader WebhookReader) *GetWebhookQuery {
	return &GetWebhookQuery{reader: reader}
}

func (q *GetWebhookQuery) Query(ctx context.Context, msg GetWebhookMessage) (core.Webhook, error) {
	if q == nil || q.reader == nil {
		return core.Webhook{}, queryDependencyError("query: webhook reader is required")
	}
	return q.reader.GetWebhook(ctx, msg.WebhookID)
}

type ListWebhooksQuery struct {
	reader WebhookReader
}

func NewListWebhooksQuery(reader WebhookReader) *ListWebhooksQuery {
	return &ListWebhooksQuery{reader: reader}
}

func (q *ListWebhooksQuery) Query(ctx context.Context, msg ListWebhooksMessage) (WebhookPage, error) {
	if q == nil || q.reader == nil {
		return WebhookPage{}, queryDependencyError("query: webhook reader is required")
	}
	webhooks, total, err := q.reader.ListWebhooks(ctx, msg.Filter)
	if err != nil {
		return WebhookPage{}, err
	}
	return WebhookPage{Webhooks: webhooks, Total: total}, nil
}

type ListAutoDisabledQuery struct {
	reader WebhookReader
}

func NewListAutoDisabledQuery(reader WebhookReader) *ListAutoDisabledQuery {
	return &ListAutoDisabledQuery{reader: reader}
}

func (q *ListAutoDisabledQuery) Query(ctx context.Context, msg ListAutoDisabledMessage) (WebhookPage, error) {
	if q == nil || q.reader == nil {
		return WebhookPage{}, queryDependencyError("query: webhook reader is required")
	}
	webhooks, total, err := q.reader.ListAutoDisabled(ctx, msg.Offset, msg.Limit)
	if err != nil {
		return WebhookPage{}, err
	}
	return WebhookPage{Webhooks: webhooks, Total: total}, nil
}

type GetDeliveryQuery struct {
	reader DeliveryReader
}

func NewGetDeliveryQuery(reader DeliveryReader) *GetDeliveryQuery {
	return &GetDeliveryQuery{reader: reader}
}

func (q *GetDeliveryQuery) Query(ctx context.Context, msg GetDeliveryMessage) (core.Delivery, error) {
	if q == nil || q.reader == nil {
		return core.Delivery{}, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.GetDelivery(ctx, msg.DeliveryID)
}

type ListDeliveriesQuery struct {
	reader DeliveryReader
}

func NewListDeliveriesQuery(reader DeliveryReader) *ListDeliveriesQuery {
	return &ListDeliveriesQuery{reader: reader}
}

func (q *ListDeliveriesQuery) Query(ctx context.Context, msg ListDeliveriesMessage) (DeliveryPage, error) {
	if q == nil || q.reader == nil {
		return DeliveryPage{}, queryDependencyError("query: delivery reader is required")
	}
	deliveries, total, err := q.reader.ListDeliveries(ctx, msg.WebhookID, msg.Offset, msg.Limit)
	if err != nil {
		return DeliveryPage{}, err
	}
	return DeliveryPage{Deliveries: deliveries, Total: total}, nil
}

type ListAttemptsQuery struct {
	reader DeliveryReader
}

func NewListAttemptsQuery(reader DeliveryReader) *ListAttemptsQuery {
	return &ListAttemptsQuery{reader: reader}
}

func (q *ListAttemptsQuery) Query(ctx context.Context, msg ListAttemptsMessage) ([]core.DeliveryAttempt, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.ListAttempts(ctx, msg.DeliveryID)
}

type DeliveryStatsQuery struct {
	reader DeliveryReader
}

func NewDeliveryStatsQuery(reader DeliveryReader) *DeliveryStatsQuery {
	return &DeliveryStatsQuery{reader: reader}
}

func (q *DeliveryStatsQuery) Query(ctx context.Context, msg DeliveryStatsMessage) (core.DeliveryStats, error) {
	if q == nil || q.reader == nil {
		return core.DeliveryStats{}, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.DeliveryStats(ctx, msg.WebhookID)
}

type VerifySignatureQuery struct {
	verifier SignatureVerifier
}

func NewVerifySignatureQuery(verifier SignatureVerifier) *VerifySignatureQuery {
	return &VerifySignatureQuery{verifier: verifier}
}

func (q *VerifySignatureQuery) Query(ctx context.Context, msg VerifySignatureMessage) (bool, error) {
	if q == nil || q.verifier == nil {
		return false, queryDependencyError("query: signature verifier is required")
	}
	return q.verifier.VerifySignature(ctx, msg.WebhookID, msg.Payload, msg.Signature)
}
