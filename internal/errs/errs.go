package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers and for HTTP mapping
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidAmount
	KindNotFound
	KindInvalidState
	KindInsufficientBalance
	KindExceedsTarget
	KindBelowMinimum
	KindUpstream
	KindUnauthorized
	KindForbidden
	KindConflict
)

var kindNames = map[Kind]string{
	KindInternal:            "internal",
	KindValidation:          "validation",
	KindInvalidAmount:       "invalid_amount",
	KindNotFound:            "not_found",
	KindInvalidState:        "invalid_state",
	KindInsufficientBalance: "insufficient_balance",
	KindExceedsTarget:       "exceeds_target",
	KindBelowMinimum:        "below_minimum",
	KindUpstream:            "upstream",
	KindUnauthorized:        "unauthorized",
	KindForbidden:           "forbidden",
	KindConflict:            "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus maps a kind onto the status code returned by the API
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidAmount, KindInvalidState, KindInsufficientBalance,
		KindExceedsTarget, KindBelowMinimum, KindUpstream:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error. Message is safe to show to API
// clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel kinds, so errors.Is(err, errs.ErrNotFound) works for
// any NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrExceedsTarget       = &Error{Kind: KindExceedsTarget}
	ErrBelowMinimum        = &Error{Kind: KindBelowMinimum}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrInternal            = &Error{Kind: KindInternal}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error    { return newf(KindValidation, format, args...) }
func InvalidAmount(format string, args ...any) *Error { return newf(KindInvalidAmount, format, args...) }
func NotFound(format string, args ...any) *Error      { return newf(KindNotFound, format, args...) }
func InvalidState(format string, args ...any) *Error  { return newf(KindInvalidState, format, args...) }
func InsufficientBalance(format string, args ...any) *Error {
	return newf(KindInsufficientBalance, format, args...)
}
func ExceedsTarget(format string, args ...any) *Error { return newf(KindExceedsTarget, format, args...) }
func BelowMinimum(format string, args ...any) *Error  { return newf(KindBelowMinimum, format, args...) }
func Unauthorized(format string, args ...any) *Error  { return newf(KindUnauthorized, format, args...) }
func Forbidden(format string, args ...any) *Error     { return newf(KindForbidden, format, args...) }
func Conflict(format string, args ...any) *Error      { return newf(KindConflict, format, args...) }

// Upstream wraps a failure reported by an external provider
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Internal wraps an unexpected failure; its detail is only for logs
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
