package core

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidEventType                = errors.New("core: invalid event type")
	ErrInvalidEndpointURL              = errors.New("core: invalid endpoint url")
	ErrInvalidSignatureScheme          = errors.New("core: invalid signature scheme")
	ErrInvalidSubscription             = errors.New("core: invalid subscription")
	ErrInvalidDeliveryStatusTransition = errors.New("core: invalid delivery status transition")
	ErrWebhookNotFound                 = errors.New("core: webhook not found")
	ErrDeliveryNotFound                = errors.New("core: delivery not found")
)

// Subscription is the tagged event-selection variant: either every event
// type, or an explicit set. The zero value subscribes to nothing and fails
// validation, so a webhook cannot end up with "no events, not all events"
// by accident.
type Subscription struct {
	allEvents bool
	events    []string
}

func SubscribeAll() Subscription {
	return Subscription{allEvents: true}
}

func SubscribeTo(events ...string) Subscription {
	return Subscription{events: normalizeEventTypes(events)}
}

// NewSubscription rebuilds a subscription from storage. An explicit event
// list alongside the all-events flag is rejected rather than silently
// preferring one of the two.
func NewSubscription(allEvents bool, events []string) (Subscription, error) {
	normalized := normalizeEventTypes(events)
	if allEvents && len(normalized) > 0 {
		return Subscription{}, fmt.Errorf("%w: all-events flag with explicit event list", ErrInvalidSubscription)
	}
	if allEvents {
		return SubscribeAll(), nil
	}
	if len(normalized) == 0 {
		return Subscription{}, fmt.Errorf("%w: no events selected", ErrInvalidSubscription)
	}
	return Subscription{events: normalized}, nil
}

func (s Subscription) AllEvents() bool {
	return s.allEvents
}

func (s Subscription) Events() []string {
	return append([]string(nil), s.events...)
}

func (s Subscription) Matches(eventType string) bool {
	if s.allEvents {
		return true
	}
	eventType = strings.TrimSpace(strings.ToLower(eventType))
	for _, event := range s.events {
		if event == eventType {
			return true
		}
	}
	return false
}

func (s Subscription) Validate() error {
	if !s.allEvents && len(s.events) == 0 {
		return fmt.Errorf("%w: no events selected", ErrInvalidSubscription)
	}
	return nil
}

func normalizeEventTypes(events []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(events))
	for _, event := range events {
		normalized := strings.TrimSpace(strings.ToLower(event))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

// Webhook is a registered subscriber endpoint plus its delivery policy and
// signing secret. StoreID is empty for global subscribers.
type Webhook struct {
	ID                  string
	StoreID             string
	URL                 string
	Method              string
	ContentType         string
	Subscription        Subscription
	Secret              string
	Scheme              string
	IsActive            bool
	Timeout             time.Duration
	RetryEnabled        bool
	MaxRetries          int
	AutoDisabled        bool
	DisabledReason      string
	ConsecutiveFailures int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

func (w Webhook) Validate() error {
	if err := validateEndpointURL(w.URL); err != nil {
		return err
	}
	if err := w.Subscription.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(w.Secret) == "" {
		return fmt.Errorf("core: webhook secret is required")
	}
	if strings.TrimSpace(w.Scheme) == "" {
		return fmt.Errorf("%w: empty scheme", ErrInvalidSignatureScheme)
	}
	if w.MaxRetries < 0 {
		return fmt.Errorf("core: max retries must not be negative")
	}
	return nil
}

// Matches reports whether an event should fan out to this webhook:
// active, subscribed to the event type, and in scope for the event's store.
func (w Webhook) Matches(eventType string, storeID string) bool {
	if !w.IsActive || w.DeletedAt != nil {
		return false
	}
	if !w.Subscription.Matches(eventType) {
		return false
	}
	if strings.TrimSpace(w.StoreID) == "" {
		return true
	}
	return strings.TrimSpace(w.StoreID) == strings.TrimSpace(storeID)
}

func validateEndpointURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidEndpointURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpointURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpointURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpointURL)
	}
	return nil
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusInFlight  DeliveryStatus = "in_flight"
	DeliveryStatusSucceeded DeliveryStatus = "succeeded"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery is one instance of sending one event to one webhook. The URL,
// method, content type, secret, and scheme are snapshots taken when the
// delivery was created: later webhook edits never retroactively change
// what a delivery sends or how its audit trail reads.
type Delivery struct {
	ID             string
	WebhookID      string
	EventType      string
	StoreID        string
	Payload        []byte
	URL            string
	Method         string
	ContentType    string
	Secret         string
	Scheme         string
	Status         DeliveryStatus
	Attempts       int
	LastStatusCode int
	LastError      string
	LastAttemptAt  *time.Time
	NextAttemptAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *Delivery) TransitionTo(status DeliveryStatus, now time.Time) error {
	if d == nil {
		return nil
	}
	if !deliveryTransitionAllowed(d.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidDeliveryStatusTransition, d.Status, status)
	}
	d.Status = status
	d.UpdatedAt = now
	return nil
}

func deliveryTransitionAllowed(current, next DeliveryStatus) bool {
	allowed := map[DeliveryStatus]map[DeliveryStatus]struct{}{
		DeliveryStatusPending: {
			DeliveryStatusInFlight: {},
		},
		DeliveryStatusInFlight: {
			DeliveryStatusSucceeded: {},
			DeliveryStatusPending:   {},
			DeliveryStatusFailed:    {},
		},
		// Terminal deliveries may only leave via an operator-forced retry.
		DeliveryStatusFailed: {
			DeliveryStatusInFlight: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

// DeliveryAttempt is one immutable audit row: a single outbound HTTP call
// made for a delivery, whatever the outcome.
type DeliveryAttempt struct {
	ID              string
	DeliveryID      string
	WebhookID       string
	Attempt         int
	URL             string
	StatusCode      int
	ResponseSnippet string
	Error           string
	Duration        time.Duration
	CreatedAt       time.Time
}

// Event is the transient dispatcher input; it is never persisted on its own.
type Event struct {
	Type    string
	StoreID string
	Payload map[string]any
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidEventType)
	}
	return nil
}

type TriggerResult struct {
	MatchedCount int
	DeliveryIDs  []string
}

// AttemptOutcome is the classified result of one outbound attempt. Network
// and serialization failures are converted into outcomes, never surfaced as
// raw errors from the executor.
type AttemptOutcome struct {
	Success         bool
	Retryable       bool
	StatusCode      int
	ResponseSnippet string
	Err             error
}

type DeliveryStats struct {
	WebhookID string
	Pending   int
	InFlight  int
	Succeeded int
	Failed    int
}
