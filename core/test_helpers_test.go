package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start.UTC()}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryWebhookStore struct {
	mu       sync.Mutex
	webhooks map[string]Webhook
}

func newMemoryWebhookStore() *memoryWebhookStore {
	return &memoryWebhookStore{webhooks: map[string]Webhook{}}
}

func (s *memoryWebhookStore) Create(_ context.Context, webhook Webhook) (Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[webhook.ID] = webhook
	return webhook, nil
}

func (s *memoryWebhookStore) Get(_ context.Context, id string) (Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok || webhook.DeletedAt != nil {
		return Webhook{}, fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	return webhook, nil
}

func (s *memoryWebhookStore) Update(_ context.Context, webhook Webhook) (Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webhooks[webhook.ID]; !ok {
		return Webhook{}, fmt.Errorf("%w: %s", ErrWebhookNotFound, webhook.ID)
	}
	s.webhooks[webhook.ID] = webhook
	return webhook, nil
}

func (s *memoryWebhookStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok || webhook.DeletedAt != nil {
		return fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	now := time.Now().UTC()
	webhook.DeletedAt = &now
	s.webhooks[id] = webhook
	return nil
}

func (s *memoryWebhookStore) List(_ context.Context, filter WebhookFilter) ([]Webhook, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Webhook
	for _, webhook := range s.webhooks {
		if webhook.DeletedAt != nil {
			continue
		}
		if filter.StoreID != "" && webhook.StoreID != filter.StoreID {
			continue
		}
		if filter.ActiveOnly && !webhook.IsActive {
			continue
		}
		if filter.AutoDisabledOnly && !webhook.AutoDisabled {
			continue
		}
		out = append(out, webhook)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (s *memoryWebhookStore) ListMatching(_ context.Context, eventType string, storeID string) ([]Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Webhook
	for _, webhook := range s.webhooks {
		if webhook.DeletedAt != nil || !webhook.IsActive {
			continue
		}
		if !webhook.Matches(eventType, storeID) {
			continue
		}
		out = append(out, webhook)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryWebhookStore) RecordFailure(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	webhook.ConsecutiveFailures++
	s.webhooks[id] = webhook
	return webhook.ConsecutiveFailures, nil
}

func (s *memoryWebhookStore) ResetFailures(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	webhook.ConsecutiveFailures = 0
	s.webhooks[id] = webhook
	return nil
}

func (s *memoryWebhookStore) Disable(_ context.Context, id string, auto bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	webhook.IsActive = false
	webhook.AutoDisabled = auto
	webhook.DisabledReason = reason
	s.webhooks[id] = webhook
	return nil
}

func (s *memoryWebhookStore) ReEnable(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	webhook, ok := s.webhooks[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrWebhookNotFound, id)
	}
	if !webhook.AutoDisabled {
		return false, nil
	}
	webhook.IsActive = true
	webhook.AutoDisabled = false
	webhook.DisabledReason = ""
	webhook.ConsecutiveFailures = 0
	s.webhooks[id] = webhook
	return true, nil
}

type memoryDeliveryStore struct {
	mu         sync.Mutex
	deliveries map[string]Delivery
}

func newMemoryDeliveryStore() *memoryDeliveryStore {
	return &memoryDeliveryStore{deliveries: map[string]Delivery{}}
}

func (s *memoryDeliveryStore) Create(_ context.Context, delivery Delivery) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[delivery.ID] = delivery
	return delivery, nil
}

func (s *memoryDeliveryStore) Get(_ context.Context, id string) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return Delivery{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	return delivery, nil
}

func (s *memoryDeliveryStore) Update(_ context.Context, delivery Delivery) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[delivery.ID]; !ok {
		return Delivery{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, delivery.ID)
	}
	s.deliveries[delivery.ID] = delivery
	return delivery, nil
}

func (s *memoryDeliveryStore) Claim(_ context.Context, id string) (Delivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return Delivery{}, false, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	if delivery.Status != DeliveryStatusPending && delivery.Status != DeliveryStatusFailed {
		return Delivery{}, false, nil
	}
	delivery.Status = DeliveryStatusInFlight
	s.deliveries[id] = delivery
	return delivery, true, nil
}

func (s *memoryDeliveryStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Delivery
	for _, delivery := range s.deliveries {
		if delivery.Status != DeliveryStatusPending {
			continue
		}
		if delivery.NextAttemptAt == nil || delivery.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, delivery)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].Status = DeliveryStatusInFlight
		s.deliveries[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *memoryDeliveryStore) ListByWebhook(_ context.Context, webhookID string, offset, limit int) ([]Delivery, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Delivery
	for _, delivery := range s.deliveries {
		if webhookID != "" && delivery.WebhookID != webhookID {
			continue
		}
		out = append(out, delivery)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset > 0 {
		if offset >= len(out) {
			out = nil
		} else {
			out = out[offset:]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memoryDeliveryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, delivery := range s.deliveries {
		if delivery.Status == DeliveryStatusPending {
			continue
		}
		if !delivery.CreatedAt.Before(cutoff) {
			continue
		}
		delete(s.deliveries, id)
		removed++
	}
	return removed, nil
}

func (s *memoryDeliveryStore) Stats(_ context.Context, webhookID string) (DeliveryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := DeliveryStats{WebhookID: webhookID}
	for _, delivery := range s.deliveries {
		if webhookID != "" && delivery.WebhookID != webhookID {
			continue
		}
		switch delivery.Status {
		case DeliveryStatusPending:
			stats.Pending++
		case DeliveryStatusInFlight:
			stats.InFlight++
		case DeliveryStatusSucceeded:
			stats.Succeeded++
		case DeliveryStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type memoryAttemptStore struct {
	mu       sync.Mutex
	attempts []DeliveryAttempt
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{}
}

func (s *memoryAttemptStore) Append(_ context.Context, attempt DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *memoryAttemptStore) ListByDelivery(_ context.Context, deliveryID string) ([]DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DeliveryAttempt
	for _, attempt := range s.attempts {
		if attempt.DeliveryID == deliveryID {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attempt < out[j].Attempt })
	return out, nil
}

// scriptedResponse is one canned reply for the stub HTTP client.
type scriptedResponse struct {
	status int
	body   string
	err    error
}

type stubHTTPClient struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  []*http.Request
	bodies    [][]byte
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)

	response := scriptedResponse{status: http.StatusOK}
	if len(c.responses) > 0 {
		response = c.responses[0]
		if len(c.responses) > 1 {
			c.responses = c.responses[1:]
		}
	}
	if response.err != nil {
		return nil, response.err
	}
	return &http.Response{
		StatusCode: response.status,
		Body:       io.NopCloser(strings.NewReader(response.body)),
		Header:     http.Header{},
	}, nil
}

func (c *stubHTTPClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type testHarness struct {
	service    *Service
	webhooks   *memoryWebhookStore
	deliveries *memoryDeliveryStore
	attempts   *memoryAttemptStore
	client     *stubHTTPClient
	clock      *manualClock
}

func newTestHarness(cfg Config, responses ...scriptedResponse) *testHarness {
	clock := newManualClock(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	webhooks := newMemoryWebhookStore()
	deliveries := newMemoryDeliveryStore()
	attempts := newMemoryAttemptStore()
	client := &stubHTTPClient{responses: responses}

	service, err := NewService(cfg,
		WithWebhookStore(webhooks),
		WithDeliveryStore(deliveries),
		WithAttemptStore(attempts),
		WithHTTPClient(client),
		WithClock(clock.Now),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
	if err != nil {
		panic(err)
	}
	return &testHarness{
		service:    service,
		webhooks:   webhooks,
		deliveries: deliveries,
		attempts:   attempts,
		client:     client,
		clock:      clock,
	}
}

func (h *testHarness) createWebhook(sub Subscription, mutate ...func(*Webhook)) Webhook {
	webhook, err := h.service.CreateWebhook(context.Background(), CreateWebhookRequest{
		URL:          "https://example.com/hooks",
		Subscription: sub,
		RetryEnabled: true,
	})
	if err != nil {
		panic(err)
	}
	for _, fn := range mutate {
		fn(&webhook)
	}
	if len(mutate) > 0 {
		if _, err := h.webhooks.Update(context.Background(), webhook); err != nil {
			panic(err)
		}
	}
	return webhook
}
