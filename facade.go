package webhooks

import (
	"fmt"

	webhookcommand "github.com/goliatone/go-webhooks/command"
	webhookquery "github.com/goliatone/go-webhooks/query"
)

// CommandQueryService is the full surface the facade wires: every
// mutating operation plus the read and signature-verification sides.
// *core.Service satisfies it.
type CommandQueryService interface {
	webhookcommand.MutatingService
	webhookquery.WebhookReader
	webhookquery.DeliveryReader
	webhookquery.SignatureVerifier
}

type Commands struct {
	CreateWebhook   *webhookcommand.CreateWebhookCommand
	UpdateWebhook   *webhookcommand.UpdateWebhookCommand
	DeleteWebhook   *webhookcommand.DeleteWebhookCommand
	ReEnableWebhook *webhookcommand.ReEnableWebhookCommand
	Trigger         *webhookcommand.TriggerCommand
	TestWebhook     *webhookcommand.TestWebhookCommand
	RetryDelivery   *webhookcommand.RetryDeliveryCommand
	ProcessRetries  *webhookcommand.ProcessRetriesCommand
	Cleanup         *webhookcommand.CleanupCommand
}

type Queries struct {
	GetWebhook       *webhookquery.GetWebhookQuery
	ListWebhooks     *webhookquery.ListWebhooksQuery
	ListAutoDisabled *webhookquery.ListAutoDisabledQuery
	GetDelivery      *webhookquery.GetDeliveryQuery
	ListDeliveries   *webhookquery.ListDeliveriesQuery
	ListAttempts     *webhookquery.ListAttemptsQuery
	DeliveryStats    *webhookquery.DeliveryStatsQuery
	VerifySignature  *webhookquery.VerifySignatureQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateWebhook:   webhookcommand.NewCreateWebhookCommand(service),
		UpdateWebhook:   webhookcommand.NewUpdateWebhookCommand(service),
		DeleteWebhook:   webhookcommand.NewDeleteWebhookCommand(service),
		ReEnableWebhook: webhookcommand.NewReEnableWebhookCommand(service),
		Trigger:         webhookcommand.NewTriggerCommand(service),
		TestWebhook:     webhookcommand.NewTestWebhookCommand(service),
		RetryDelivery:   webhookcommand.NewRetryDeliveryCommand(service),
		ProcessRetries:  webhookcommand.NewProcessRetriesCommand(service),
		Cleanup:         webhookcommand.NewCleanupCommand(service),
	}
	facade.queries = Queries{
		GetWebhook:       webhookquery.NewGetWebhookQuery(service),
		ListWebhooks:     webhookquery.NewListWebhooksQuery(service),
		ListAutoDisabled: webhookquery.NewListAutoDisabledQuery(service),
		GetDelivery:      webhookquery.NewGetDeliveryQuery(service),
		ListDeliveries:   webhookquery.NewListDeliveriesQuery(service),
		ListAttempts:     webhookquery.NewListAttemptsQuery(service),
		DeliveryStats:    webhookquery.NewDeliveryStatsQuery(service),
		VerifySignature:  webhookquery.NewVerifySignatureQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
