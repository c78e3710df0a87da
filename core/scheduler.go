package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// backoffDelay computes the wait before retry attempt n (1-based over
// completed attempts): base doubled per attempt, capped, plus random
// jitter up to one base interval so a burst of failures does not retry
// in lockstep.
func (s *Service) backoffDelay(attempt int) time.Duration {
	base := s.config.Retry.BaseDelay
	if base <= 0 {
		base = DefaultConfig().Retry.BaseDelay
	}
	maxDelay := s.config.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultConfig().Retry.MaxDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	shift := attempt - 1
	delay := maxDelay
	if shift < 62 {
		scaled := float64(base) * math.Pow(2, float64(shift))
		if scaled < float64(maxDelay) {
			delay = time.Duration(scaled)
		}
	}

	if s.jitter != nil {
		delay += s.jitter(base)
	}
	return delay
}

// RetrySweepResult summarizes one pass of the retry scheduler.
type RetrySweepResult struct {
	Claimed   int
	Executed  int
	FailedIDs []string
}

// ProcessPendingRetries claims deliveries whose next attempt is due and
// executes them inline. The claim is atomic per delivery, so concurrent
// sweeps (or a sweep racing background dispatch) split the due set instead
// of double-sending.
func (s *Service) ProcessPendingRetries(ctx context.Context, limit int) (result RetrySweepResult, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "retry_sweep", err, fields)
	}()

	if s == nil || s.deliveryStore == nil {
		return RetrySweepResult{}, fmt.Errorf("core: delivery store is required")
	}
	if limit <= 0 {
		limit = s.config.Retry.SweepBatch
	}
	if limit <= 0 {
		limit = DefaultConfig().Retry.SweepBatch
	}

	due, err := s.deliveryStore.ClaimDue(ctx, s.clockNow(), limit)
	if err != nil {
		err = s.mapError(err)
		return RetrySweepResult{}, err
	}

	result = RetrySweepResult{Claimed: len(due)}
	for _, delivery := range due {
		webhook, lookupErr := s.webhookStore.Get(ctx, delivery.WebhookID)
		if lookupErr != nil || !webhook.IsActive {
			reason := "webhook disabled"
			if lookupErr != nil {
				reason = "webhook no longer exists"
			}
			if recordErr := s.recordOutcome(ctx, delivery, webhook, AttemptOutcome{Err: fmt.Errorf("%s", reason)}, 0, true); recordErr != nil {
				result.FailedIDs = append(result.FailedIDs, delivery.ID)
				continue
			}
			result.Executed++
			continue
		}

		attemptStart := s.clockNow()
		outcome := s.performAttempt(ctx, delivery, webhook.Timeout)
		if recordErr := s.recordOutcome(ctx, delivery, webhook, outcome, s.clockNow().Sub(attemptStart), false); recordErr != nil {
			result.FailedIDs = append(result.FailedIDs, delivery.ID)
			continue
		}
		result.Executed++
	}

	fields["claimed"] = result.Claimed
	fields["executed"] = result.Executed
	return result, nil
}

// RetryDelivery forces an immediate attempt for a single delivery,
// regardless of its backoff schedule. Failed deliveries are eligible, so
// an operator can resurrect one that exhausted its retries; the attempt
// counter keeps accumulating across the resurrection.
func (s *Service) RetryDelivery(ctx context.Context, deliveryID string) (delivery Delivery, err error) {
	startedAt := s.clockNow()
	fields := map[string]any{
		"delivery_id": deliveryID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delivery_retry", err, fields)
	}()

	if s == nil || s.deliveryStore == nil {
		return Delivery{}, fmt.Errorf("core: delivery store is required")
	}
	deliveryID = strings.TrimSpace(deliveryID)

	claimed, ok, err := s.deliveryStore.Claim(ctx, deliveryID)
	if err != nil {
		err = s.mapError(err)
		return Delivery{}, err
	}
	if !ok {
		current, getErr := s.deliveryStore.Get(ctx, deliveryID)
		if getErr != nil {
			err = s.mapError(getErr)
			return Delivery{}, err
		}
		err = s.mapError(fmt.Errorf("%w: %s -> %s", ErrInvalidDeliveryStatusTransition, current.Status, DeliveryStatusInFlight))
		return Delivery{}, err
	}
	fields["webhook_id"] = claimed.WebhookID

	webhook, lookupErr := s.webhookStore.Get(ctx, claimed.WebhookID)
	if lookupErr != nil || !webhook.IsActive {
		reason := "webhook disabled"
		if lookupErr != nil {
			reason = "webhook no longer exists"
		}
		if recordErr := s.recordOutcome(ctx, claimed, webhook, AttemptOutcome{Err: fmt.Errorf("%s", reason)}, 0, true); recordErr != nil {
			err = recordErr
			return Delivery{}, err
		}
	} else {
		attemptStart := s.clockNow()
		outcome := s.performAttempt(ctx, claimed, webhook.Timeout)
		if recordErr := s.recordOutcome(ctx, claimed, webhook, outcome, s.clockNow().Sub(attemptStart), false); recordErr != nil {
			err = recordErr
			return Delivery{}, err
		}
	}

	delivery, err = s.deliveryStore.Get(ctx, deliveryID)
	if err != nil {
		err = s.mapError(err)
		return Delivery{}, err
	}
	return delivery, nil
}
