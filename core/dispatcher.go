package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type deliveryEnvelope struct {
	EventType string         `json:"eventType"`
	StoreID   string         `json:"storeId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

func buildDeliveryPayload(event Event, occurredAt time.Time) ([]byte, error) {
	data := event.Payload
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(deliveryEnvelope{
		EventType: event.Type,
		StoreID:   event.StoreID,
		Timestamp: occurredAt,
		Data:      data,
	})
}

// Trigger fans an event out to every active webhook whose subscription
// matches. One pending delivery is written per match before any network
// traffic happens, each carrying a snapshot of the endpoint, secret, and
// scheme so later edits to the webhook cannot change a payload already
// committed for delivery. Execution runs on background goroutines bounded
// by the dispatch concurrency limit; the returned result only reports
// the deliveries created.
func (s *Service) Trigger(ctx context.Context, event Event) (result TriggerResult, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"event_type": event.Type,
		"store_id":   event.StoreID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "trigger", err, fields)
	}()

	if s == nil || s.webhookStore == nil || s.deliveryStore == nil {
		return TriggerResult{}, fmt.Errorf("core: webhook and delivery stores are required")
	}
	event.Type = strings.TrimSpace(strings.ToLower(event.Type))
	event.StoreID = strings.TrimSpace(event.StoreID)
	if err = event.Validate(); err != nil {
		err = s.mapError(err)
		return TriggerResult{}, err
	}

	matched, err := s.webhookStore.ListMatching(ctx, event.Type, event.StoreID)
	if err != nil {
		err = s.mapError(err)
		return TriggerResult{}, err
	}

	occurredAt := s.clockNow()
	payload, err := buildDeliveryPayload(event, occurredAt)
	if err != nil {
		err = s.mapError(err)
		return TriggerResult{}, err
	}

	result = TriggerResult{MatchedCount: len(matched)}
	for _, webhook := range matched {
		// Due immediately. The background goroutine usually wins the
		// claim first, but if the process dies before it runs the retry
		// sweep can still find the row.
		firstAttemptAt := occurredAt
		delivery := Delivery{
			ID:            uuid.NewString(),
			WebhookID:     webhook.ID,
			EventType:     event.Type,
			StoreID:       event.StoreID,
			Payload:       payload,
			URL:           webhook.URL,
			Method:        webhook.Method,
			ContentType:   webhook.ContentType,
			Secret:        webhook.Secret,
			Scheme:        webhook.Scheme,
			Status:        DeliveryStatusPending,
			NextAttemptAt: &firstAttemptAt,
			CreatedAt:     occurredAt,
			UpdatedAt:     occurredAt,
		}
		created, createErr := s.deliveryStore.Create(ctx, delivery)
		if createErr != nil {
			err = s.mapError(createErr)
			return result, err
		}
		result.DeliveryIDs = append(result.DeliveryIDs, created.ID)
		s.dispatchAsync(created.ID)
	}

	fields["matched"] = result.MatchedCount
	return result, nil
}

// dispatchAsync hands a freshly created delivery to a worker goroutine.
// The semaphore bounds concurrent HTTP sends; Drain waits on the group.
func (s *Service) dispatchAsync(deliveryID string) {
	if s == nil || s.dispatchSem == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.dispatchSem <- struct{}{}
		defer func() { <-s.dispatchSem }()

		ctx := context.Background()
		if err := s.ExecuteDelivery(ctx, deliveryID); err != nil {
			s.logError(ctx, "background delivery failed", map[string]any{
				"delivery_id": deliveryID,
				"error":       err.Error(),
			})
		}
	}()
}

// TestResult reports a synchronous test send. Test sends create no
// delivery rows and never touch the webhook's failure counters.
type TestResult struct {
	Success    bool
	StatusCode int
	Response   string
	Error      string
	Duration   time.Duration
}

// TestWebhook sends a synthetic ping event to the webhook's endpoint and
// reports the raw outcome without recording anything.
func (s *Service) TestWebhook(ctx context.Context, webhookID string) (result TestResult, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"webhook_id": webhookID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "webhook_test", err, fields)
	}()

	if s == nil || s.webhookStore == nil {
		return TestResult{}, fmt.Errorf("core: webhook store is required")
	}
	webhook, err := s.webhookStore.Get(ctx, strings.TrimSpace(webhookID))
	if err != nil {
		err = s.mapError(err)
		return TestResult{}, err
	}

	occurredAt := s.clockNow()
	payload, err := buildDeliveryPayload(Event{
		Type:    "webhook.test",
		StoreID: webhook.StoreID,
		Payload: map[string]any{"test": true},
	}, occurredAt)
	if err != nil {
		err = s.mapError(err)
		return TestResult{}, err
	}

	ping := Delivery{
		ID:          uuid.NewString(),
		WebhookID:   webhook.ID,
		EventType:   "webhook.test",
		StoreID:     webhook.StoreID,
		Payload:     payload,
		URL:         webhook.URL,
		Method:      webhook.Method,
		ContentType: webhook.ContentType,
		Secret:      webhook.Secret,
		Scheme:      webhook.Scheme,
	}
	outcome := s.performAttempt(ctx, ping, webhook.Timeout)

	result = TestResult{
		Success:    outcome.Success,
		StatusCode: outcome.StatusCode,
		Response:   outcome.ResponseSnippet,
		Duration:   s.clockNow().Sub(occurredAt),
	}
	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}
	return result, nil
}
