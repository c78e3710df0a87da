package webhooks

import "github.com/goliatone/go-webhooks/core"

type Config = core.Config

type RetryConfig = core.RetryConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Webhook = core.Webhook
type Subscription = core.Subscription
type Delivery = core.Delivery
type DeliveryAttempt = core.DeliveryAttempt
type DeliveryStatus = core.DeliveryStatus
type DeliveryStats = core.DeliveryStats
type Event = core.Event
type TriggerResult = core.TriggerResult
type TestResult = core.TestResult
type RetrySweepResult = core.RetrySweepResult

type WebhookStore = core.WebhookStore
type DeliveryStore = core.DeliveryStore
type AttemptStore = core.AttemptStore
type StoreProvider = core.StoreProvider
type SchemeRegistry = core.SchemeRegistry
type SignatureScheme = core.SignatureScheme

type CreateWebhookRequest = core.CreateWebhookRequest
type UpdateWebhookRequest = core.UpdateWebhookRequest

const (
	DeliveryStatusPending   = core.DeliveryStatusPending
	DeliveryStatusInFlight  = core.DeliveryStatusInFlight
	DeliveryStatusSucceeded = core.DeliveryStatusSucceeded
	DeliveryStatusFailed    = core.DeliveryStatusFailed
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithWebhookStore      = core.WithWebhookStore
	WithDeliveryStore     = core.WithDeliveryStore
	WithAttemptStore      = core.WithAttemptStore
	WithHTTPClient        = core.WithHTTPClient
	WithSchemeRegistry    = core.WithSchemeRegistry
	WithClock             = core.WithClock
	WithJitter            = core.WithJitter
)

var _ CommandQueryService = (*core.Service)(nil)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

// GenerateSecret returns a random webhook signing secret.
func GenerateSecret() (string, error) {
	return core.GenerateSecret()
}
