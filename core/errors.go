package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorBadInput        = "WEBHOOKS_BAD_INPUT"
	WebhookErrorNotFound        = "WEBHOOKS_NOT_FOUND"
	WebhookErrorInvalidEndpoint = "WEBHOOKS_INVALID_ENDPOINT"
	WebhookErrorInvalidScheme   = "WEBHOOKS_INVALID_SCHEME"
	WebhookErrorConflict        = "WEBHOOKS_CONFLICT"
	WebhookErrorDisabled        = "WEBHOOKS_SUBSCRIBER_DISABLED"
	WebhookErrorInternal        = "WEBHOOKS_INTERNAL_ERROR"
)

func webhookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	switch {
	case goerrors.Is(err, ErrWebhookNotFound), goerrors.Is(err, ErrDeliveryNotFound):
		return wrapWebhookError(err, goerrors.CategoryNotFound, WebhookErrorNotFound)
	case goerrors.Is(err, ErrInvalidEndpointURL):
		return wrapWebhookError(err, goerrors.CategoryBadInput, WebhookErrorInvalidEndpoint)
	case goerrors.Is(err, ErrInvalidSignatureScheme):
		return wrapWebhookError(err, goerrors.CategoryBadInput, WebhookErrorInvalidScheme)
	case goerrors.Is(err, ErrInvalidEventType), goerrors.Is(err, ErrInvalidSubscription):
		return wrapWebhookError(err, goerrors.CategoryBadInput, WebhookErrorBadInput)
	case goerrors.Is(err, ErrInvalidDeliveryStatusTransition):
		return wrapWebhookError(err, goerrors.CategoryConflict, WebhookErrorConflict)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return wrapWebhookError(err, goerrors.CategoryNotFound, WebhookErrorNotFound)
	case strings.Contains(msg, "disabled"):
		return wrapWebhookError(err, goerrors.CategoryConflict, WebhookErrorDisabled)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return wrapWebhookError(err, goerrors.CategoryBadInput, WebhookErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

// wrapWebhookError keeps the source error in the envelope so callers can
// keep matching domain sentinels with errors.Is after mapping.
func wrapWebhookError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWebhookErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithTextCode(textCode),
	)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WebhookErrorBadInput
	case goerrors.CategoryNotFound:
		return WebhookErrorNotFound
	case goerrors.CategoryConflict:
		return WebhookErrorConflict
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
