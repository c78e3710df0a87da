package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeCreateWebhook   = "webhooks.command.webhook.create"
	TypeUpdateWebhook   = "webhooks.command.webhook.update"
	TypeDeleteWebhook   = "webhooks.command.webhook.delete"
	TypeReEnableWebhook = "webhooks.command.webhook.reenable"
	TypeTrigger         = "webhooks.command.trigger"
	TypeTestWebhook     = "webhooks.command.webhook.test"
	TypeRetryDelivery   = "webhooks.command.delivery.retry"
	TypeProcessRetries  = "webhooks.command.retries.process"
	TypeCleanup         = "webhooks.command.deliveries.cleanup"
)

type CreateWebhookMessage struct {
	Request core.CreateWebhookRequest
}

func (CreateWebhookMessage) Type() string { return TypeCreateWebhook }

func (m CreateWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Request.URL) == "" {
		return fmt.Errorf("command: endpoint url is required")
	}
	if err := m.Request.Subscription.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type UpdateWebhookMessage struct {
	Request core.UpdateWebhookRequest
}

func (UpdateWebhookMessage) Type() string { return TypeUpdateWebhook }

func (m UpdateWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Request.WebhookID) == "" {
		return fmt.Errorf("command: webhook id is required")
	}
	return nil
}

type DeleteWebhookMessage struct {
	WebhookID string
}

func (DeleteWebhookMessage) Type() string { return TypeDeleteWebhook }

func (m DeleteWebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("command: webhook id is required")
	}
	return nil
}

type ReEnableWebhookMessage struct {
	WebhookID string
}

func (ReEnableWebhookMessage) Type() string { return TypeReEnableWebhook }

func (m ReEnableWebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("command: webhook id is required")
	}
	return nil
}

type TriggerMessage struct {
	Event core.Event
}

func (TriggerMessage) Type() string { return TypeTrigger }

func (m TriggerMessage) Validate() error {
	if strings.TrimSpace(m.Event.Type) == "" {
		return fmt.Errorf("command: event type is required")
	}
	return nil
}

type TestWebhookMessage struct {
	WebhookID string
}

func (TestWebhookMessage) Type() string { return TypeTestWebhook }

func (m TestWebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("command: webhook id is required")
	}
	return nil
}

type RetryDeliveryMessage struct {
	DeliveryID string
}

func (RetryDeliveryMessage) Type() string { return TypeRetryDelivery }

func (m RetryDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("command: delivery id is required")
	}
	return nil
}

type ProcessRetriesMessage struct {
	Limit int
}

func (ProcessRetriesMessage) Type() string { return TypeProcessRetries }

func (m ProcessRetriesMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("command: limit must not be negative")
	}
	return nil
}

type CleanupMessage struct {
	DaysToKeep int
}

func (CleanupMessage) Type() string { return TypeCleanup }

func (m CleanupMessage) Validate() error {
	if m.DaysToKeep < 0 {
		return fmt.Errorf("command: days to keep must not be negative")
	}
	return nil
}
