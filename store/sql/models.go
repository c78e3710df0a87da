package sqlstore

import (
	"time"

	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type webhookRecord struct {
	bun.BaseModel `bun:"table:webhooks,alias:wh"`

	ID                  string     `bun:"id,pk"`
	StoreID             string     `bun:"store_id"`
	URL                 string     `bun:"url,notnull"`
	Method              string     `bun:"method,notnull"`
	ContentType         string     `bun:"content_type,notnull"`
	AllEvents           bool       `bun:"all_events,notnull"`
	EventTypes          []string   `bun:"event_types,type:jsonb,notnull"`
	Secret              string     `bun:"secret,notnull"`
	Scheme              string     `bun:"scheme,notnull"`
	IsActive            bool       `bun:"is_active,notnull"`
	TimeoutMS           int64      `bun:"timeout_ms,notnull"`
	RetryEnabled        bool       `bun:"retry_enabled,notnull"`
	MaxRetries          int        `bun:"max_retries,notnull"`
	AutoDisabled        bool       `bun:"auto_disabled,notnull"`
	DisabledReason      string     `bun:"disabled_reason"`
	ConsecutiveFailures int        `bun:"consecutive_failures,notnull"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt           *time.Time `bun:"deleted_at,soft_delete"`
}

func webhookFromDomain(webhook core.Webhook) *webhookRecord {
	return &webhookRecord{
		ID:                  webhook.ID,
		StoreID:             webhook.StoreID,
		URL:                 webhook.URL,
		Method:              webhook.Method,
		ContentType:         webhook.ContentType,
		AllEvents:           webhook.Subscription.AllEvents(),
		EventTypes:          webhook.Subscription.Events(),
		Secret:              webhook.Secret,
		Scheme:              webhook.Scheme,
		IsActive:            webhook.IsActive,
		TimeoutMS:           webhook.Timeout.Milliseconds(),
		RetryEnabled:        webhook.RetryEnabled,
		MaxRetries:          webhook.MaxRetries,
		AutoDisabled:        webhook.AutoDisabled,
		DisabledReason:      webhook.DisabledReason,
		ConsecutiveFailures: webhook.ConsecutiveFailures,
		CreatedAt:           webhook.CreatedAt,
		UpdatedAt:           webhook.UpdatedAt,
		DeletedAt:           webhook.DeletedAt,
	}
}

func (r *webhookRecord) toDomain() core.Webhook {
	if r == nil {
		return core.Webhook{}
	}
	sub := core.SubscribeAll()
	if !r.AllEvents {
		sub = core.SubscribeTo(r.EventTypes...)
	}
	return core.Webhook{
		ID:                  r.ID,
		StoreID:             r.StoreID,
		URL:                 r.URL,
		Method:              r.Method,
		ContentType:         r.ContentType,
		Subscription:        sub,
		Secret:              r.Secret,
		Scheme:              r.Scheme,
		IsActive:            r.IsActive,
		Timeout:             time.Duration(r.TimeoutMS) * time.Millisecond,
		RetryEnabled:        r.RetryEnabled,
		MaxRetries:          r.MaxRetries,
		AutoDisabled:        r.AutoDisabled,
		DisabledReason:      r.DisabledReason,
		ConsecutiveFailures: r.ConsecutiveFailures,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		DeletedAt:           r.DeletedAt,
	}
}

type deliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:wd"`

	ID             string     `bun:"id,pk"`
	WebhookID      string     `bun:"webhook_id,notnull"`
	EventType      string     `bun:"event_type,notnull"`
	StoreID        string     `bun:"store_id"`
	Payload        []byte     `bun:"payload,notnull"`
	URL            string     `bun:"url,notnull"`
	Method         string     `bun:"method,notnull"`
	ContentType    string     `bun:"content_type,notnull"`
	Secret         string     `bun:"secret,notnull"`
	Scheme         string     `bun:"scheme,notnull"`
	Status         string     `bun:"status,notnull"`
	Attempts       int        `bun:"attempts,notnull"`
	LastStatusCode int        `bun:"last_status_code"`
	LastError      string     `bun:"last_error"`
	LastAttemptAt  *time.Time `bun:"last_attempt_at,nullzero"`
	NextAttemptAt  *time.Time `bun:"next_attempt_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func deliveryFromDomain(delivery core.Delivery) *deliveryRecord {
	return &deliveryRecord{
		ID:             delivery.ID,
		WebhookID:      delivery.WebhookID,
		EventType:      delivery.EventType,
		StoreID:        delivery.StoreID,
		Payload:        append([]byte(nil), delivery.Payload...),
		URL:            delivery.URL,
		Method:         delivery.Method,
		ContentType:    delivery.ContentType,
		Secret:         delivery.Secret,
		Scheme:         delivery.Scheme,
		Status:         string(delivery.Status),
		Attempts:       delivery.Attempts,
		LastStatusCode: delivery.LastStatusCode,
		LastError:      delivery.LastError,
		LastAttemptAt:  delivery.LastAttemptAt,
		NextAttemptAt:  delivery.NextAttemptAt,
		CreatedAt:      delivery.CreatedAt,
		UpdatedAt:      delivery.UpdatedAt,
	}
}

func (r *deliveryRecord) toDomain() core.Delivery {
	if r == nil {
		return core.Delivery{}
	}
	return core.Delivery{
		ID:             r.ID,
		WebhookID:      r.WebhookID,
		EventType:      r.EventType,
		StoreID:        r.StoreID,
		Payload:        append([]byte(nil), r.Payload...),
		URL:            r.URL,
		Method:         r.Method,
		ContentType:    r.ContentType,
		Secret:         r.Secret,
		Scheme:         r.Scheme,
		Status:         core.DeliveryStatus(r.Status),
		Attempts:       r.Attempts,
		LastStatusCode: r.LastStatusCode,
		LastError:      r.LastError,
		LastAttemptAt:  r.LastAttemptAt,
		NextAttemptAt:  r.NextAttemptAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type deliveryAttemptRecord struct {
	bun.BaseModel `bun:"table:webhook_delivery_attempts,alias:wda"`

	ID              string    `bun:"id,pk"`
	DeliveryID      string    `bun:"delivery_id,notnull"`
	WebhookID       string    `bun:"webhook_id,notnull"`
	Attempt         int       `bun:"attempt,notnull"`
	URL             string    `bun:"url,notnull"`
	StatusCode      int       `bun:"status_code"`
	ResponseSnippet string    `bun:"response_snippet"`
	Error           string    `bun:"error"`
	DurationMS      int64     `bun:"duration_ms,notnull"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func attemptFromDomain(attempt core.DeliveryAttempt) *deliveryAttemptRecord {
	return &deliveryAttemptRecord{
		ID:              attempt.ID,
		DeliveryID:      attempt.DeliveryID,
		WebhookID:       attempt.WebhookID,
		Attempt:         attempt.Attempt,
		URL:             attempt.URL,
		StatusCode:      attempt.StatusCode,
		ResponseSnippet: attempt.ResponseSnippet,
		Error:           attempt.Error,
		DurationMS:      attempt.Duration.Milliseconds(),
		CreatedAt:       attempt.CreatedAt,
	}
}

func (r *deliveryAttemptRecord) toDomain() core.DeliveryAttempt {
	if r == nil {
		return core.DeliveryAttempt{}
	}
	return core.DeliveryAttempt{
		ID:              r.ID,
		DeliveryID:      r.DeliveryID,
		WebhookID:       r.WebhookID,
		Attempt:         r.Attempt,
		URL:             r.URL,
		StatusCode:      r.StatusCode,
		ResponseSnippet: r.ResponseSnippet,
		Error:           r.Error,
		Duration:        time.Duration(r.DurationMS) * time.Millisecond,
		CreatedAt:       r.CreatedAt,
	}
}
