package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateWebhookMessage]   = (*CreateWebhookCommand)(nil)
	_ gocmd.Commander[UpdateWebhookMessage]   = (*UpdateWebhookCommand)(nil)
	_ gocmd.Commander[DeleteWebhookMessage]   = (*DeleteWebhookCommand)(nil)
	_ gocmd.Commander[ReEnableWebhookMessage] = (*ReEnableWebhookCommand)(nil)
	_ gocmd.Commander[TriggerMessage]         = (*TriggerCommand)(nil)
	_ gocmd.Commander[TestWebhookMessage]     = (*TestWebhookCommand)(nil)
	_ gocmd.Commander[RetryDeliveryMessage]   = (*RetryDeliveryCommand)(nil)
	_ gocmd.Commander[ProcessRetriesMessage]  = (*ProcessRetriesCommand)(nil)
	_ gocmd.Commander[CleanupMessage]         = (*CleanupCommand)(nil)
)
