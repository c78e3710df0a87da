package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeGetWebhook       = "webhooks.query.webhook.get"
	TypeListWebhooks     = "webhooks.query.webhook.list"
	TypeListAutoDisabled = "webhooks.query.webhook.list_auto_disabled"
	TypeGetDelivery      = "webhooks.query.delivery.get"
	TypeListDeliveries   = "webhooks.query.delivery.list"
	TypeListAttempts     = "webhooks.query.delivery.attempts"
	TypeDeliveryStats    = "webhooks.query.delivery.stats"
	TypeVerifySignature  = "webhooks.query.signature.verify"
)

type GetWebhookMessage struct {
	WebhookID string
}

func (GetWebhookMessage) Type() string { return TypeGetWebhook }

func (m GetWebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("query: webhook id is required")
	}
	return nil
}

type ListWebhooksMessage struct {
	Filter core.WebhookFilter
}

func (ListWebhooksMessage) Type() string { return TypeListWebhooks }

func (m ListWebhooksMessage) Validate() error {
	if m.Filter.Offset < 0 || m.Filter.Limit < 0 {
		return fmt.Errorf("query: offset and limit must not be negative")
	}
	return nil
}

type ListAutoDisabledMessage struct {
	Offset int
	Limit  int
}

func (ListAutoDisabledMessage) Type() string { return TypeListAutoDisabled }

func (m ListAutoDisabledMessage) Validate() error {
	if m.Offset < 0 || m.Limit < 0 {
		return fmt.Errorf("query: offset and limit must not be negative")
	}
	return nil
}

type GetDeliveryMessage struct {
	DeliveryID string
}

func (GetDeliveryMessage) Type() string { return TypeGetDelivery }

func (m GetDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("query: delivery id is required")
	}
	return nil
}

type ListDeliveriesMessage struct {
	WebhookID string
	Offset    int
	Limit     int
}

func (ListDeliveriesMessage) Type() string { return TypeListDeliveries }

func (m ListDeliveriesMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("query: webhook id is required")
	}
	if m.Offset < 0 || m.Limit < 0 {
		return fmt.Errorf("query: offset and limit must not be negative")
	}
	return nil
}

type ListAttemptsMessage struct {
	DeliveryID string
}

func (ListAttemptsMessage) Type() string { return TypeListAttempts }

func (m ListAttemptsMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("query: delivery id is required")
	}
	return nil
}

type DeliveryStatsMessage struct {
	WebhookID string
}

func (DeliveryStatsMessage) Type() string { return TypeDeliveryStats }

func (m DeliveryStatsMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("query: webhook id is required")
	}
	return nil
}

type VerifySignatureMessage struct {
	WebhookID string
	Payload   []byte
	Signature string
}

func (VerifySignatureMessage) Type() string { return TypeVerifySignature }

func (m VerifySignatureMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("query: webhook id is required")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("query: payload is required")
	}
	if strings.TrimSpace(m.Signature) == "" {
		return fmt.Errorf("query: signature is required")
	}
	return nil
}
