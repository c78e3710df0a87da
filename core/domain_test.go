package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewSubscription_RejectsAllEventsWithExplicitList(t *testing.T) {
	if _, err := NewSubscription(true, []string{"order.created"}); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("expected ErrInvalidSubscription, got %v", err)
	}
}

func TestNewSubscription_RejectsEmpty(t *testing.T) {
	if _, err := NewSubscription(false, nil); !errors.Is(err, ErrInvalidSubscription) {
		t.Fatalf("expected ErrInvalidSubscription, got %v", err)
	}
}

func TestSubscription_NormalizesEventTypes(t *testing.T) {
	sub := SubscribeTo("Order.Created", "order.created", "  payment.failed  ")
	events := sub.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 deduped events, got %v", events)
	}
	if events[0] != "order.created" || events[1] != "payment.failed" {
		t.Fatalf("unexpected normalized events: %v", events)
	}
}

func TestSubscription_Matches(t *testing.T) {
	cases := []struct {
		name      string
		sub       Subscription
		eventType string
		want      bool
	}{
		{"all events matches anything", SubscribeAll(), "order.created", true},
		{"explicit match", SubscribeTo("order.created"), "order.created", true},
		{"explicit miss", SubscribeTo("order.created"), "order.updated", false},
		{"case insensitive", SubscribeTo("order.created"), "Order.Created", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sub.Matches(tc.eventType); got != tc.want {
				t.Fatalf("Matches(%q) = %v, want %v", tc.eventType, got, tc.want)
			}
		})
	}
}

func TestWebhook_Matches_StoreScope(t *testing.T) {
	scoped := Webhook{
		StoreID:      "store_1",
		Subscription: SubscribeAll(),
		IsActive:     true,
	}
	global := Webhook{
		Subscription: SubscribeAll(),
		IsActive:     true,
	}

	if inactive := (Webhook{Subscription: SubscribeAll()}); inactive.Matches("order.created", "") {
		t.Fatal("inactive webhook must never match")
	}
	if !scoped.Matches("order.created", "store_1") {
		t.Fatal("scoped webhook should match its own store")
	}
	if scoped.Matches("order.created", "store_2") {
		t.Fatal("scoped webhook should not match another store")
	}
	if !global.Matches("order.created", "store_2") {
		t.Fatal("unscoped webhook should match any store")
	}
	if !global.Matches("order.created", "") {
		t.Fatal("unscoped webhook should match events with no store")
	}
}

func TestWebhook_Validate_EndpointURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"https://example.com/hooks", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"https://", false},
		{"not a url", false},
		{"", false},
	}
	for _, tc := range cases {
		webhook := Webhook{
			URL:          tc.url,
			Method:       "POST",
			Subscription: SubscribeAll(),
			Secret:       "secret",
			Scheme:       SchemeHMACSHA256,
		}
		err := webhook.Validate()
		if tc.ok && err != nil {
			t.Fatalf("Validate(%q): unexpected error %v", tc.url, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidEndpointURL) {
			t.Fatalf("Validate(%q): expected ErrInvalidEndpointURL, got %v", tc.url, err)
		}
	}
}

func TestDelivery_TransitionTo(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		from DeliveryStatus
		to   DeliveryStatus
		ok   bool
	}{
		{DeliveryStatusPending, DeliveryStatusInFlight, true},
		{DeliveryStatusInFlight, DeliveryStatusSucceeded, true},
		{DeliveryStatusInFlight, DeliveryStatusPending, true},
		{DeliveryStatusInFlight, DeliveryStatusFailed, true},
		{DeliveryStatusFailed, DeliveryStatusInFlight, true},
		{DeliveryStatusPending, DeliveryStatusSucceeded, false},
		{DeliveryStatusSucceeded, DeliveryStatusInFlight, false},
		{DeliveryStatusSucceeded, DeliveryStatusPending, false},
		{DeliveryStatusFailed, DeliveryStatusPending, false},
	}
	for _, tc := range cases {
		delivery := Delivery{Status: tc.from}
		err := delivery.TransitionTo(tc.to, now)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
			}
			if delivery.Status != tc.to {
				t.Fatalf("%s -> %s: status not applied", tc.from, tc.to)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDeliveryStatusTransition) {
			t.Fatalf("%s -> %s: expected transition error, got %v", tc.from, tc.to, err)
		}
		if delivery.Status != tc.from {
			t.Fatalf("%s -> %s: status mutated on rejected transition", tc.from, tc.to)
		}
	}
}

func TestEvent_Validate(t *testing.T) {
	if err := (Event{Type: "order.created"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Event{Type: "   "}).Validate(); !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
}
