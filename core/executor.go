package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// performAttempt sends one HTTP request for a delivery and classifies the
// response. It never touches storage; ExecuteDelivery owns all state writes.
// The payload is signed byte for byte as sent so receivers can verify the
// signature against the raw request body.
func (s *Service) performAttempt(ctx context.Context, delivery Delivery, timeout time.Duration) AttemptOutcome {
	if s == nil || s.httpClient == nil {
		return AttemptOutcome{Err: fmt.Errorf("core: http client is required")}
	}

	signature, err := s.schemes.Sign(delivery.Payload, delivery.Secret, delivery.Scheme)
	if err != nil {
		return AttemptOutcome{Err: err}
	}

	if timeout <= 0 {
		timeout = s.config.DefaultTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := delivery.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(requestCtx, method, delivery.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return AttemptOutcome{Err: err}
	}
	contentType := delivery.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, delivery.EventType)
	req.Header.Set(HeaderDelivery, delivery.ID)

	res, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			err = fmt.Errorf("core: request timed out after %s: %w", timeout, err)
		}
		return AttemptOutcome{
			Retryable: true,
			Err:       err,
		}
	}
	defer res.Body.Close()

	snippetLimit := s.config.ResponseSnippetBytes
	if snippetLimit <= 0 {
		snippetLimit = DefaultConfig().ResponseSnippetBytes
	}
	body, readErr := io.ReadAll(io.LimitReader(res.Body, int64(snippetLimit)))
	snippet := string(body)
	if readErr != nil {
		snippet = strings.TrimSpace(snippet)
	}

	outcome := AttemptOutcome{
		StatusCode:      res.StatusCode,
		ResponseSnippet: snippet,
	}
	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		outcome.Success = true
	case res.StatusCode == http.StatusTooManyRequests,
		res.StatusCode >= 500:
		outcome.Retryable = true
		outcome.Err = fmt.Errorf("core: endpoint returned status %d", res.StatusCode)
	default:
		outcome.Err = fmt.Errorf("core: endpoint returned status %d", res.StatusCode)
	}
	return outcome
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ExecuteDelivery claims a delivery, performs one attempt against the
// snapshotted endpoint, and records the result. Claiming is conditional on
// the stored status so two workers racing on the same delivery cannot both
// send; the loser observes a no-op and returns. If the webhook has been
// disabled or deleted since the delivery was created, the delivery fails
// terminally without a network send.
func (s *Service) ExecuteDelivery(ctx context.Context, deliveryID string) (err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"delivery_id": deliveryID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delivery_execute", err, fields)
	}()

	if s == nil || s.deliveryStore == nil {
		return fmt.Errorf("core: delivery store is required")
	}

	delivery, claimed, err := s.deliveryStore.Claim(ctx, strings.TrimSpace(deliveryID))
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if !claimed {
		return nil
	}
	fields["webhook_id"] = delivery.WebhookID
	fields["event_type"] = delivery.EventType

	webhook, lookupErr := s.webhookStore.Get(ctx, delivery.WebhookID)
	if lookupErr != nil || !webhook.IsActive {
		reason := "webhook disabled"
		if lookupErr != nil {
			reason = "webhook no longer exists"
		}
		return s.recordOutcome(ctx, delivery, webhook, AttemptOutcome{Err: errors.New(reason)}, 0, true)
	}

	attemptStart := s.clockNow()
	outcome := s.performAttempt(ctx, delivery, webhook.Timeout)
	return s.recordOutcome(ctx, delivery, webhook, outcome, s.clockNow().Sub(attemptStart), false)
}

// recordOutcome applies one attempt's result: appends the audit row, bumps
// attempt accounting, transitions the delivery, and feeds the auto-disable
// counters. Only terminal failures count toward the failure streak; an
// attempt that reschedules within the retry budget is not yet a verdict on
// the subscriber. skipped marks attempts that never reached the network
// because the webhook was disabled; those are terminal and leave failure
// counters alone.
func (s *Service) recordOutcome(ctx context.Context, delivery Delivery, webhook Webhook, outcome AttemptOutcome, duration time.Duration, skipped bool) error {
	now := s.clockNow()
	delivery.Attempts++
	delivery.LastAttemptAt = &now
	delivery.LastStatusCode = outcome.StatusCode
	delivery.LastError = ""
	if outcome.Err != nil {
		delivery.LastError = outcome.Err.Error()
	}

	if s.attemptStore != nil {
		attempt := DeliveryAttempt{
			ID:              uuid.NewString(),
			DeliveryID:      delivery.ID,
			WebhookID:       delivery.WebhookID,
			Attempt:         delivery.Attempts,
			URL:             delivery.URL,
			StatusCode:      outcome.StatusCode,
			ResponseSnippet: outcome.ResponseSnippet,
			Error:           delivery.LastError,
			Duration:        duration,
			CreatedAt:       now,
		}
		if appendErr := s.attemptStore.Append(ctx, attempt); appendErr != nil {
			s.logError(ctx, "failed to append delivery attempt", map[string]any{
				"delivery_id": delivery.ID,
				"error":       appendErr.Error(),
			})
		}
	}

	switch {
	case outcome.Success:
		delivery.NextAttemptAt = nil
		if err := delivery.TransitionTo(DeliveryStatusSucceeded, now); err != nil {
			return s.mapError(err)
		}
		if _, err := s.deliveryStore.Update(ctx, delivery); err != nil {
			return s.mapError(err)
		}
		if !skipped {
			s.noteDeliverySuccess(ctx, webhook)
		}
		return nil

	case !skipped && outcome.Retryable && webhook.RetryEnabled && delivery.Attempts <= webhook.MaxRetries:
		nextAt := now.Add(s.backoffDelay(delivery.Attempts))
		delivery.NextAttemptAt = &nextAt
		if err := delivery.TransitionTo(DeliveryStatusPending, now); err != nil {
			return s.mapError(err)
		}
		if _, err := s.deliveryStore.Update(ctx, delivery); err != nil {
			return s.mapError(err)
		}
		return nil

	default:
		delivery.NextAttemptAt = nil
		if err := delivery.TransitionTo(DeliveryStatusFailed, now); err != nil {
			return s.mapError(err)
		}
		if _, err := s.deliveryStore.Update(ctx, delivery); err != nil {
			return s.mapError(err)
		}
		if !skipped {
			s.noteDeliveryFailure(ctx, webhook)
		}
		return nil
	}
}
