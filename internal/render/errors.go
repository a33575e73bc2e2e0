package render

import (
	"fmt"
	"net/http"

	"policy-backend/internal/convert"
)

// Kind classifies every way a render can fail.
type Kind string

const (
	KindTemplateNotFound     Kind = "template_not_found"
	KindTemplateError        Kind = "template_error"
	KindConverterUnavailable Kind = "converter_unavailable"
	KindConversionFailed     Kind = "conversion_failed"
	KindValidation           Kind = "validation_error"
	KindInternal             Kind = "internal_error"
)

// Error is the single error a render returns. Message is safe to show to callers;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind      Kind
	Message   string
	Reason    string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// StatusFor maps a render error to an HTTP status.
func StatusFor(e *Error) int {
	switch e.Kind {
	case KindTemplateNotFound:
		return http.StatusNotFound
	case KindTemplateError:
		return http.StatusUnprocessableEntity
	case KindConverterUnavailable:
		return http.StatusServiceUnavailable
	case KindConversionFailed:
		if e.Reason == convert.ReasonTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, reason string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err, Message: fmt.Sprintf(format, args...)}
}
