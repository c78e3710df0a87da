package core

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	repositoryFactory any
	webhookStore      WebhookStore
	deliveryStore     DeliveryStore
	attemptStore      AttemptStore
	httpClient        HTTPDoer
	schemes           *SchemeRegistry
	now               func() time.Time
	jitter            func(max time.Duration) time.Duration

	dispatchSem chan struct{}
	inflight    sync.WaitGroup
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PersistenceClient any
	RepositoryFactory any
	WebhookStore      WebhookStore
	DeliveryStore     DeliveryStore
	AttemptStore      AttemptStore
	HTTPClient        HTTPDoer
	Schemes           *SchemeRegistry
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.schemes == nil {
		builder.schemes = NewSchemeRegistry()
	}
	if builder.clock == nil {
		builder.clock = func() time.Time {
			return time.Now().UTC()
		}
	}
	if builder.jitter == nil {
		builder.jitter = func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.webhookStore == nil || builder.deliveryStore == nil || builder.attemptStore == nil) &&
		builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			stores, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if stores != nil {
				if builder.webhookStore == nil {
					builder.webhookStore = stores.WebhookStore()
				}
				if builder.deliveryStore == nil {
					builder.deliveryStore = stores.DeliveryStore()
				}
				if builder.attemptStore == nil {
					builder.attemptStore = stores.AttemptStore()
				}
			}
		} else if stores, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.webhookStore == nil {
				builder.webhookStore = stores.WebhookStore()
			}
			if builder.deliveryStore == nil {
				builder.deliveryStore = stores.DeliveryStore()
			}
			if builder.attemptStore == nil {
				builder.attemptStore = stores.AttemptStore()
			}
		}
	}

	if builder.httpClient == nil {
		builder.httpClient = &http.Client{Timeout: finalConfig.DefaultTimeout}
	}

	maxConcurrent := finalConfig.Dispatch.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConfig().Dispatch.MaxConcurrent
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		webhookStore:      builder.webhookStore,
		deliveryStore:     builder.deliveryStore,
		attemptStore:      builder.attemptStore,
		httpClient:        builder.httpClient,
		schemes:           builder.schemes,
		now:               builder.clock,
		jitter:            builder.jitter,
		dispatchSem:       make(chan struct{}, maxConcurrent),
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		WebhookStore:      s.webhookStore,
		DeliveryStore:     s.deliveryStore,
		AttemptStore:      s.attemptStore,
		HTTPClient:        s.httpClient,
		Schemes:           s.schemes,
	}
}

// Drain blocks until all background deliveries spawned by Trigger have
// finished. Call during shutdown so in-flight sends are not abandoned.
func (s *Service) Drain() {
	if s == nil {
		return
	}
	s.inflight.Wait()
}

type CreateWebhookRequest struct {
	StoreID      string
	URL          string
	Method       string
	ContentType  string
	Subscription Subscription
	Secret       string
	Scheme       string
	Timeout      time.Duration
	RetryEnabled bool
	// MaxRetries nil falls back to the configured default; an explicit
	// zero registers a webhook with no retry budget.
	MaxRetries *int
}

func (s *Service) CreateWebhook(ctx context.Context, req CreateWebhookRequest) (webhook Webhook, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"store_id": req.StoreID,
		"url":      req.URL,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "webhook_create", err, fields)
	}()

	if s == nil || s.webhookStore == nil {
		return Webhook{}, fmt.Errorf("core: webhook store is required")
	}

	secret := strings.TrimSpace(req.Secret)
	if secret == "" {
		generated, generateErr := GenerateSecret()
		if generateErr != nil {
			err = s.mapError(generateErr)
			return Webhook{}, err
		}
		secret = generated
	}

	scheme := strings.TrimSpace(strings.ToLower(req.Scheme))
	if scheme == "" {
		scheme = SchemeHMACSHA256
	}
	if _, ok := s.schemes.Resolve(scheme); !ok {
		err = s.mapError(fmt.Errorf("%w: %q", ErrInvalidSignatureScheme, scheme))
		return Webhook{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.config.DefaultTimeout
	}
	maxRetries := s.config.Retry.MaxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}

	now := s.clockNow()
	webhook = Webhook{
		ID:           uuid.NewString(),
		StoreID:      strings.TrimSpace(req.StoreID),
		URL:          strings.TrimSpace(req.URL),
		Method:       normalizeMethod(req.Method),
		ContentType:  normalizeContentType(req.ContentType),
		Subscription: req.Subscription,
		Secret:       secret,
		Scheme:       scheme,
		IsActive:     true,
		Timeout:      timeout,
		RetryEnabled: req.RetryEnabled,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = webhook.Validate(); err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}

	fields["webhook_id"] = webhook.ID
	webhook, err = s.webhookStore.Create(ctx, webhook)
	if err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}
	return webhook, nil
}

type UpdateWebhookRequest struct {
	WebhookID    string
	URL          *string
	Method       *string
	ContentType  *string
	Subscription *Subscription
	Secret       *string
	Scheme       *string
	IsActive     *bool
	Timeout      *time.Duration
	RetryEnabled *bool
	MaxRetries   *int
}

// UpdateWebhook replaces policy and endpoint fields explicitly named in the
// request. Endpoint and secret only ever change through this path; delivery
// processing works off per-delivery snapshots and never writes them.
func (s *Service) UpdateWebhook(ctx context.Context, req UpdateWebhookRequest) (webhook Webhook, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"webhook_id": req.WebhookID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "webhook_update", err, fields)
	}()

	if s == nil || s.webhookStore == nil {
		return Webhook{}, fmt.Errorf("core: webhook store is required")
	}
	webhook, err = s.webhookStore.Get(ctx, strings.TrimSpace(req.WebhookID))
	if err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}

	if req.URL != nil {
		webhook.URL = strings.TrimSpace(*req.URL)
	}
	if req.Method != nil {
		webhook.Method = normalizeMethod(*req.Method)
	}
	if req.ContentType != nil {
		webhook.ContentType = normalizeContentType(*req.ContentType)
	}
	if req.Subscription != nil {
		webhook.Subscription = *req.Subscription
	}
	if req.Secret != nil && strings.TrimSpace(*req.Secret) != "" {
		webhook.Secret = strings.TrimSpace(*req.Secret)
	}
	if req.Scheme != nil {
		scheme := strings.TrimSpace(strings.ToLower(*req.Scheme))
		if _, ok := s.schemes.Resolve(scheme); !ok {
			err = s.mapError(fmt.Errorf("%w: %q", ErrInvalidSignatureScheme, scheme))
			return Webhook{}, err
		}
		webhook.Scheme = scheme
	}
	if req.IsActive != nil {
		webhook.IsActive = *req.IsActive
		if *req.IsActive {
			webhook.AutoDisabled = false
			webhook.DisabledReason = ""
		} else if !webhook.AutoDisabled {
			webhook.DisabledReason = "disabled by operator"
		}
	}
	if req.Timeout != nil && *req.Timeout > 0 {
		webhook.Timeout = *req.Timeout
	}
	if req.RetryEnabled != nil {
		webhook.RetryEnabled = *req.RetryEnabled
	}
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		webhook.MaxRetries = *req.MaxRetries
	}
	webhook.UpdatedAt = s.clockNow()

	if err = webhook.Validate(); err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}
	webhook, err = s.webhookStore.Update(ctx, webhook)
	if err != nil {
		err = s.mapError(err)
		return Webhook{}, err
	}
	return webhook, nil
}

// DeleteWebhook soft-deletes: the row is tombstoned so existing delivery
// history keeps a valid reference, and dispatch stops matching it.
func (s *Service) DeleteWebhook(ctx context.Context, webhookID string) (err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"webhook_id": webhookID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "webhook_delete", err, fields)
	}()

	if s == nil || s.webhookStore == nil {
		return fmt.Errorf("core: webhook store is required")
	}
	if err = s.webhookStore.Delete(ctx, strings.TrimSpace(webhookID)); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) GetWebhook(ctx context.Context, webhookID string) (Webhook, error) {
	if s == nil || s.webhookStore == nil {
		return Webhook{}, fmt.Errorf("core: webhook store is required")
	}
	webhook, err := s.webhookStore.Get(ctx, strings.TrimSpace(webhookID))
	if err != nil {
		return Webhook{}, s.mapError(err)
	}
	return webhook, nil
}

func (s *Service) ListWebhooks(ctx context.Context, filter WebhookFilter) ([]Webhook, int, error) {
	if s == nil || s.webhookStore == nil {
		return nil, 0, fmt.Errorf("core: webhook store is required")
	}
	webhooks, total, err := s.webhookStore.List(ctx, filter)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return webhooks, total, nil
}

func (s *Service) clockNow() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func normalizeMethod(method string) string {
	method = strings.TrimSpace(strings.ToUpper(method))
	if method == "" {
		return http.MethodPost
	}
	return method
}

func normalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if contentType == "" {
		return "application/json"
	}
	return contentType
}
