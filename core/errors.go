package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput                  = "SERVICE_BAD_INPUT"
	ServiceErrorUnauthorized              = "SERVICE_UNAUTHORIZED"
	ServiceErrorConflict                  = "SERVICE_CONFLICT"
	ServiceErrorNotFound                  = "SERVICE_NOT_FOUND"
	ServiceErrorInternal                  = "SERVICE_INTERNAL_ERROR"
	ServiceErrorTransportFailure          = "TRANSPORT_FAILURE"
	ServiceErrorSubscriptionCreateFailure = "SUBSCRIPTION_CREATE_FAILURE"
	ServiceErrorRateLimited               = "SERVICE_RATE_LIMITED"
)

// NewTransportFailure builds the error every ResourceClient call returns on
// network, auth or provider-side failure.
func NewTransportFailure(message string, statusCode int, metadata map[string]any) error {
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithCode(statusCode).
		WithTextCode(ServiceErrorTransportFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapTransportFailure(source error, message string, statusCode int, metadata map[string]any) error {
	if source == nil {
		return NewTransportFailure(message, statusCode, metadata)
	}
	if IsTransportFailure(source) {
		return source
	}
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(statusCode).
		WithTextCode(ServiceErrorTransportFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func IsTransportFailure(err error) bool {
	return hasTextCode(err, ServiceErrorTransportFailure)
}

func newSubscriptionCreateFailure(source error, resource string) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "core: subscription create failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(ServiceErrorSubscriptionCreateFailure).
		WithMetadata(map[string]any{"resource": resource})
}

func IsSubscriptionCreateFailure(err error) bool {
	return hasTextCode(err, ServiceErrorSubscriptionCreateFailure)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return false
	}
	return strings.TrimSpace(richErr.TextCode) == textCode
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ServiceErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthorized
	case goerrors.CategoryConflict:
		return ServiceErrorConflict
	case goerrors.CategoryExternal:
		return ServiceErrorTransportFailure
	case goerrors.CategoryRateLimit:
		return ServiceErrorRateLimited
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
