package gojob

import (
	"context"
	"fmt"

	"github.com/goliatone/go-webhooks/core"
)

// DeliveryRunner is the slice of the webhook service the job runner
// drives.
type DeliveryRunner interface {
	ExecuteDelivery(ctx context.Context, deliveryID string) error
	ProcessPendingRetries(ctx context.Context, limit int) (core.RetrySweepResult, error)
	CleanupDeliveries(ctx context.Context, daysToKeep int) (int, error)
}

// Runner executes dequeued webhook job messages against the service.
type Runner struct {
	service DeliveryRunner
}

func NewRunner(service DeliveryRunner) (*Runner, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: delivery runner is required")
	}
	return &Runner{service: service}, nil
}

// Run dispatches one message to the matching service operation. Unknown
// job IDs fail so misrouted messages surface instead of acking silently.
func (r *Runner) Run(ctx context.Context, msg *core.JobExecutionMessage) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("gojob: runner is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}

	switch msg.JobID {
	case JobIDDispatch:
		deliveryID, err := DeliveryIDFromMessage(msg)
		if err != nil {
			return err
		}
		return r.service.ExecuteDelivery(ctx, deliveryID)
	case JobIDRetrySweep:
		_, err := r.service.ProcessPendingRetries(ctx, IntParam(msg, paramBatchSize, 0))
		return err
	case JobIDCleanup:
		_, err := r.service.CleanupDeliveries(ctx, IntParam(msg, paramDaysToKeep, 0))
		return err
	default:
		return fmt.Errorf("gojob: unknown job id %q", msg.JobID)
	}
}

// RunDelivery processes one dequeued delivery end to end, acking on
// success and nacking with the retry policy otherwise.
func (r *Runner) RunDelivery(ctx context.Context, delivery core.JobDelivery) error {
	if delivery == nil {
		return fmt.Errorf("gojob: job delivery is required")
	}
	runErr := r.Run(ctx, delivery.Message())
	if runErr == nil {
		return delivery.Ack(ctx)
	}
	nackErr := delivery.Nack(ctx, core.JobNackOptions{
		Requeue: true,
		Reason:  runErr.Error(),
	})
	if nackErr != nil {
		return fmt.Errorf("gojob: nack after run failure: %w (run error: %v)", nackErr, runErr)
	}
	return runErr
}
