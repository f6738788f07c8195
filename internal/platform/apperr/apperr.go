// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error taxonomy for the vault client.

It provides a rich error type that bridges the gap between low-level transport
and storage failures and the messages a command or form shows to the user.

Architecture:

  - AppError: A struct carrying a Kind, a machine-readable Code and a user-facing message.
  - Kind: The class of failure (validation, authentication, network, ...).
  - Mapping: HTTP status codes returned by the vault API are mapped to a Kind by apiclient.

Every error that leaves the apiclient or service layer is an [AppError] so
callers can decide how to render it with [IsKind].
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Taxonomy

// Kind classifies an [AppError] by how the caller is expected to react.
type Kind string

const (
	// KindValidation is malformed input caught before any network call.
	KindValidation Kind = "validation"

	// KindAuthentication means credentials were rejected or the session can no longer be refreshed.
	KindAuthentication Kind = "authentication"

	// KindAuthorization means the principal is authenticated but lacks the required role.
	KindAuthorization Kind = "authorization"

	// KindNotFound means the requested resource does not exist.
	KindNotFound Kind = "not_found"

	// KindNetwork is a transport failure, timeout or unreachable host.
	KindNetwork Kind = "network"

	// KindServer is a 5xx answer or a response the client cannot understand.
	KindServer Kind = "server"

	// KindRejected is any other refusal reported by the API (4xx or success=false).
	KindRejected Kind = "rejected"

	// KindStorage is an unavailable or corrupt persistent store. Logged only.
	KindStorage Kind = "storage"
)

// AppError is the canonical error type of the vault client.
//
// # Security
//
// The Cause field is for local logging only and is never rendered to the user.
type AppError struct {
	// Kind is the failure class.
	Kind Kind `json:"kind"`
	// Code is a machine-readable error identifier (e.g. "SESSION_EXPIRED").
	Code string `json:"code"`
	// Message is a human-readable description safe to show to the user.
	Message string `json:"error"`
	// HTTPStatus is the status returned by the API, or 0 when no response was received.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for KindValidation.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the form field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the user-facing message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client-side Errors

// ValidationError creates a [KindValidation] error with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: msg,
		Details: details,
	}
}

// Storage wraps a persistent store failure. It is never surfaced to the user.
func Storage(cause error) *AppError {
	return &AppError{
		Kind:    KindStorage,
		Code:    "STORAGE_ERROR",
		Message: "Local session storage is unavailable",
		Cause:   cause,
	}
}

// Network wraps a transport failure or timeout.
func Network(cause error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Code:    "NETWORK_ERROR",
		Message: "Network error. Please check your internet connection and try again.",
		Cause:   cause,
	}
}

// # API Errors

// Unauthorized creates a 401 [KindAuthentication] error.
func Unauthorized(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// SessionExpired is returned when neither the access nor the refresh credential is accepted.
func SessionExpired(cause error) *AppError {
	return &AppError{
		Kind:       KindAuthentication,
		Code:       "SESSION_EXPIRED",
		Message:    "Your session has expired. Please sign in again.",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// Forbidden creates a 403 [KindAuthorization] error.
func Forbidden(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthorization,
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// NotFound creates a 404 [KindNotFound] error.
func NotFound(msg string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    msg,
		HTTPStatus: http.StatusNotFound,
	}
}

// Rejected creates a [KindRejected] error for a refusal reported by the API.
func Rejected(status int, msg string) *AppError {
	return &AppError{
		Kind:       KindRejected,
		Code:       "REJECTED",
		Message:    msg,
		HTTPStatus: status,
	}
}

// Server creates a [KindServer] error. The cause is kept for logging.
func Server(status int, msg string, cause error) *AppError {
	return &AppError{
		Kind:       KindServer,
		Code:       "SERVER_ERROR",
		Message:    msg,
		HTTPStatus: status,
		Cause:      cause,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err (or any error in its chain) is an [*AppError] of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}

// KindOf returns the kind of err, or [KindServer] for errors outside the taxonomy.
func KindOf(err error) Kind {
	if ae := As(err); ae != nil {
		return ae.Kind
	}
	return KindServer
}
