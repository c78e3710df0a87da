package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

var (
	_ gocmd.Querier[GetWebhookMessage, core.Webhook]             = (*GetWebhookQuery)(nil)
	_ gocmd.Querier[ListWebhooksMessage, WebhookPage]            = (*ListWebhooksQuery)(nil)
	_ gocmd.Querier[ListAutoDisabledMessage, WebhookPage]        = (*ListAutoDisabledQuery)(nil)
	_ gocmd.Querier[GetDeliveryMessage, core.Delivery]           = (*GetDeliveryQuery)(nil)
	_ gocmd.Querier[ListDeliveriesMessage, DeliveryPage]         = (*ListDeliveriesQuery)(nil)
	_ gocmd.Querier[ListAttemptsMessage, []core.DeliveryAttempt] = (*ListAttemptsQuery)(nil)
	_ gocmd.Querier[DeliveryStatsMessage, core.DeliveryStats]    = (*DeliveryStatsQuery)(nil)
	_ gocmd.Querier[VerifySignatureMessage, bool]                = (*VerifySignatureQuery)(nil)
)
