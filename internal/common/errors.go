package common

import (
	"errors"
	"net/http"
)

// Messaging errors
var (
	// ErrValidation rejects malformed input such as empty message content
	ErrValidation = errors.New("validation failed")
	// ErrAccessDenied is returned when the access gate rejects a read or write
	ErrAccessDenied = errors.New("access denied")
	// ErrForbidden is returned when a caller modifies something it does not own
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for missing channels and messages
	ErrNotFound = errors.New("resource not found")
	// ErrTransport wraps network, storage and subscription failures
	ErrTransport = errors.New("transport error")
)

// Auth errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Client session errors
var (
	// ErrLiveUnavailable means the realtime connection gave up; callers fall back to Refresh
	ErrLiveUnavailable = errors.New("live updates unavailable")
	// ErrStalePage is returned when a page arrives after its channel was closed or reopened
	ErrStalePage = errors.New("stale page discarded")
	// ErrChannelClosed is returned for operations on a closed session
	ErrChannelClosed = errors.New("channel is not open")
)

// StatusFor maps an error from the messaging taxonomy to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTransport), errors.Is(err, ErrLiveUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageKey returns the i18n key describing err
func MessageKey(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "error.validation"
	case errors.Is(err, ErrAccessDenied):
		return "chat.access_denied"
	case errors.Is(err, ErrForbidden):
		return "chat.not_owner"
	case errors.Is(err, ErrNotFound):
		return "error.not_found"
	case errors.Is(err, ErrTransport):
		return "error.unavailable"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		return "error.unauthorized"
	default:
		return "error.internal"
	}
}
