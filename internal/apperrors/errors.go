// Package apperrors implements the error taxonomy shared by every service
// and HTTP handler: domain errors carry a Kind, and the HTTP layer maps that
// Kind to a status code and a {status, reason} JSON body exactly once, at
// the boundary.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the taxonomy buckets from the spec's
// error handling design.
type Kind string

const (
	KindConfig            Kind = "Config"
	KindDatabase          Kind = "Database"
	KindLightning         Kind = "Lightning"
	KindBitcoin           Kind = "Bitcoin"
	KindWebServer         Kind = "WebServer"
	KindAuthentication    Kind = "Authentication"
	KindAuthorization     Kind = "Authorization"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindMalformed         Kind = "Malformed"
	KindValidation        Kind = "Validation"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInconsistency     Kind = "Inconsistency"
)

// Error is the single error type every layer above the store deals in.
type Error struct {
	Kind     Kind
	Message  string
	Required int64 // only meaningful when Kind == KindInsufficientFunds
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps a Kind to the status code the spec prescribes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMalformed:
		return http.StatusBadRequest
	case KindValidation, KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindInconsistency, KindDatabase, KindWebServer, KindConfig:
		return http.StatusInternalServerError
	case KindLightning, KindBitcoin:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Malformed(message string) *Error  { return New(KindMalformed, message) }
func Validation(message string) *Error { return New(KindValidation, message) }

// InsufficientFunds builds the 422 error the pay path returns when the
// wallet's available balance cannot cover the requested amount.
func InsufficientFunds(requiredMsat int64) *Error {
	return &Error{
		Kind:     KindInsufficientFunds,
		Message:  "insufficient funds",
		Required: requiredMsat,
	}
}

func Authentication(message string) *Error { return New(KindAuthentication, message) }

// MissingPermission builds the 403 error for an authorization failure naming
// the specific permission that was required.
func MissingPermission(permission string) *Error {
	return New(KindAuthorization, fmt.Sprintf("missing permission: %s", permission))
}

func Database(message string, cause error) *Error  { return Wrap(KindDatabase, message, cause) }
func Lightning(message string, cause error) *Error { return Wrap(KindLightning, message, cause) }
func Bitcoin(message string, cause error) *Error   { return Wrap(KindBitcoin, message, cause) }
func Inconsistency(message string) *Error          { return New(KindInconsistency, message) }

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
