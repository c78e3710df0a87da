package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

type MutatingService interface {
	CreateWebhook(ctx context.Context, req core.CreateWebhookRequest) (core.Webhook, error)
	UpdateWebhook(ctx context.Context, req core.UpdateWebhookRequest) (core.Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
	ReEnableWebhook(ctx context.Context, webhookID string) (core.Webhook, error)
	Trigger(ctx context.Context, event core.Event) (core.TriggerResult, error)
	TestWebhook(ctx context.Context, webhookID string) (core.TestResult, error)
	RetryDelivery(ctx context.Context, deliveryID string) (core.Delivery, error)
	ProcessPendingRetries(ctx context.Context, limit int) (core.RetrySweepResult, error)
	CleanupDeliveries(ctx context.Context, daysToKeep int) (int, error)
}

type CreateWebhookCommand struct {
	service MutatingService
}

func NewCreateWebhookCommand(service MutatingService) *CreateWebhookCommand {
	return &CreateWebhookCommand{service: service}
}

func (c *CreateWebhookCommand) Execute(ctx context.Context, msg CreateWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.CreateWebhook(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateWebhookCommand struct {
	service MutatingService
}

func NewUpdateWebhookCommand(service MutatingService) *UpdateWebhookCommand {
	return &UpdateWebhookCommand{service: service}
}

func (c *UpdateWebhookCommand) Execute(ctx context.Context, msg UpdateWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.UpdateWebhook(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteWebhookCommand struct {
	service MutatingService
}

func NewDeleteWebhookCommand(service MutatingService) *DeleteWebhookCommand {
	return &DeleteWebhookCommand{service: service}
}

func (c *DeleteWebhookCommand) Execute(ctx context.Context, msg DeleteWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	return c.service.DeleteWebhook(ctx, msg.WebhookID)
}

type ReEnableWebhookCommand struct {
	service MutatingService
}

func NewReEnableWebhookCommand(service MutatingService) *ReEnableWebhookCommand {
	return &ReEnableWebhookCommand{service: service}
}

func (c *ReEnableWebhookCommand) Execute(ctx context.Context, msg ReEnableWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.ReEnableWebhook(ctx, msg.WebhookID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TriggerCommand struct {
	service MutatingService
}

func NewTriggerCommand(service MutatingService) *TriggerCommand {
	return &TriggerCommand{service: service}
}

func (c *TriggerCommand) Execute(ctx context.Context, msg TriggerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatch service is required")
	}
	out, err := c.service.Trigger(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TestWebhookCommand struct {
	service MutatingService
}

func NewTestWebhookCommand(service MutatingService) *TestWebhookCommand {
	return &TestWebhookCommand{service: service}
}

func (c *TestWebhookCommand) Execute(ctx context.Context, msg TestWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	out, err := c.service.TestWebhook(ctx, msg.WebhookID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RetryDeliveryCommand struct {
	service MutatingService
}

func NewRetryDeliveryCommand(service MutatingService) *RetryDeliveryCommand {
	return &RetryDeliveryCommand{service: service}
}

func (c *RetryDeliveryCommand) Execute(ctx context.Context, msg RetryDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	out, err := c.service.RetryDelivery(ctx, msg.DeliveryID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessRetriesCommand struct {
	service MutatingService
}

func NewProcessRetriesCommand(service MutatingService) *ProcessRetriesCommand {
	return &ProcessRetriesCommand{service: service}
}

func (c *ProcessRetriesCommand) Execute(ctx context.Context, msg ProcessRetriesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: retry service is required")
	}
	out, err := c.service.ProcessPendingRetries(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CleanupCommand struct {
	service MutatingService
}

func NewCleanupCommand(service MutatingService) *CleanupCommand {
	return &CleanupCommand{service: service}
}

func (c *CleanupCommand) Execute(ctx context.Context, msg CleanupMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: cleanup service is required")
	}
	out, err := c.service.CleanupDeliveries(ctx, msg.DaysToKeep)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
