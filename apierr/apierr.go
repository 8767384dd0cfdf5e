// Package apierr classifies failures from the REST boundary so callers can pick
// a rendering (retry panel, field messages, toast) without inspecting
// transport errors. Every error it builds is a *errors.Error from go-errors.
package apierr

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the errors built here.
const (
	CodeNetwork    = "NETWORK_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeGeneral    = "API_ERROR"
)

// Kind is the taxonomy a view renders against.
type Kind int

const (
	KindNone Kind = iota
	KindNetwork
	KindValidation
	KindGeneral
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	default:
		return "general"
	}
}

// FieldError is a single field-level message from the backend.
type FieldError = goerrors.FieldError

// Network wraps a failure where the request never completed.
func Network(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithTextCode(CodeNetwork)
}

// Validation builds a field-level validation error.
func Validation(status int, message string, fields ...FieldError) *goerrors.Error {
	if message == "" {
		message = "validation failed"
	}
	return goerrors.NewValidation(message, fields...).
		WithCode(status).
		WithTextCode(CodeValidation)
}

// General builds a single-message API error categorized by HTTP status.
func General(status int, message string) *goerrors.Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "request failed"
	}
	return goerrors.New(message, categoryFor(status)).
		WithCode(status).
		WithTextCode(CodeGeneral)
}

// FromValidation converts an ozzo validation result into the same
// ValidationError shape the backend produces.
func FromValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, message).WithTextCode(CodeValidation)
	}

	fields := make([]FieldError, 0, len(verrs))
	for field, ferr := range verrs {
		fields = append(fields, FieldError{Field: field, Message: ferr.Error()})
	}
	slices.SortFunc(fields, func(a, b FieldError) int { return strings.Compare(a.Field, b.Field) })
	return Validation(http.StatusBadRequest, message, fields...)
}

// KindOf classifies err. A nil error is KindNone, an unknown error is general.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *goerrors.Error
	if !errors.As(err, &e) {
		return KindGeneral
	}
	switch {
	case e.TextCode == CodeNetwork:
		return KindNetwork
	case len(e.ValidationErrors) > 0:
		return KindValidation
	default:
		return KindGeneral
	}
}

// IsNetwork reports whether the request never completed.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsValidation reports whether err carries field-level messages.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// FieldErrors returns the field-level messages carried by err, if any.
func FieldErrors(err error) []FieldError {
	var e *goerrors.Error
	if errors.As(err, &e) && len(e.ValidationErrors) > 0 {
		return append([]FieldError(nil), e.ValidationErrors...)
	}
	return nil
}

// FieldMessages indexes FieldErrors by field; the first message per field wins.
func FieldMessages(err error) map[string]string {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Message
		}
	}
	return out
}

// Message returns the single top-level message for a toast.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *goerrors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// Ensure returns err unchanged when it is already classified, and wraps it as a
// general error otherwise. Context cancellation is reported as a network error.
func Ensure(err error, message string) error {
	if err == nil {
		return nil
	}
	var e *goerrors.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Network(err, message)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).WithTextCode(CodeGeneral)
}

func categoryFor(status int) goerrors.Category {
	switch {
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryInternal
	}
}

