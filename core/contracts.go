package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// HTTPDoer is the outbound HTTP seam; *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type WebhookFilter struct {
	StoreID          string
	EventType        string
	ActiveOnly       bool
	AutoDisabledOnly bool
	Offset           int
	Limit            int
}

// WebhookStore persists webhook definitions. Delete is a soft delete:
// delivery history keeps referencing the webhook for audit.
type WebhookStore interface {
	Create(ctx context.Context, webhook Webhook) (Webhook, error)
	Get(ctx context.Context, id string) (Webhook, error)
	Update(ctx context.Context, webhook Webhook) (Webhook, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter WebhookFilter) ([]Webhook, int, error)
	// ListMatching returns active, non-deleted webhooks subscribed to the
	// event type (explicitly or via all-events) and in scope for storeID.
	ListMatching(ctx context.Context, eventType string, storeID string) ([]Webhook, error)
	// RecordFailure atomically increments the consecutive-failure counter
	// and returns the new count.
	RecordFailure(ctx context.Context, id string) (int, error)
	ResetFailures(ctx context.Context, id string) error
	// Disable clears the active flag; auto distinguishes policy-driven
	// deactivation from an operator switching the webhook off.
	Disable(ctx context.Context, id string, auto bool, reason string) error
	// ReEnable reactivates an auto-disabled webhook and resets its failure
	// counter. Returns false when the webhook was not auto-disabled.
	ReEnable(ctx context.Context, id string) (bool, error)
}

// DeliveryStore persists delivery state. Claim operations are conditional
// status transitions so concurrent sweeps never double-process a delivery.
type DeliveryStore interface {
	Create(ctx context.Context, delivery Delivery) (Delivery, error)
	Get(ctx context.Context, id string) (Delivery, error)
	Update(ctx context.Context, delivery Delivery) (Delivery, error)
	// Claim moves a single pending or failed delivery to in-flight.
	// Returns claimed=false when another worker holds it or the status
	// does not permit the transition.
	Claim(ctx context.Context, id string) (Delivery, bool, error)
	// ClaimDue atomically claims up to limit pending deliveries whose
	// next attempt is due at or before now.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Delivery, error)
	ListByWebhook(ctx context.Context, webhookID string, offset, limit int) ([]Delivery, int, error)
	// DeleteOlderThan removes deliveries created before cutoff, skipping
	// pending ones regardless of age.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Stats(ctx context.Context, webhookID string) (DeliveryStats, error)
}

// AttemptStore is the append-only delivery audit log.
type AttemptStore interface {
	Append(ctx context.Context, attempt DeliveryAttempt) error
	ListByDelivery(ctx context.Context, deliveryID string) ([]DeliveryAttempt, error)
}

// StoreProvider bundles the three stores for factory-style wiring.
type StoreProvider interface {
	WebhookStore() WebhookStore
	DeliveryStore() DeliveryStore
	AttemptStore() AttemptStore
}

// RepositoryStoreFactory builds stores from an opaque persistence client
// (a *bun.DB or go-persistence-bun client at the adapter layer).
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
