// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "auth:banned", "ticket:already_active")
// so the presentation layer can render a stable message per kind.
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	// Authentication & Authorization
	CodeInvalidToken   = "auth:invalid_token"
	CodeForbidden      = "auth:forbidden"
	CodeBanned         = "auth:banned"
	CodeNotApproved    = "auth:not_approved"
	CodeBadCredentials = "auth:bad_credentials"

	// Request errors
	CodeInvalidRequest   = "core:invalid_request"
	CodeValidationFailed = "core:validation_failed"

	// Resource errors
	CodeNotFound          = "core:not_found"
	CodeDuplicateIdentity = "core:duplicate_identity"
	CodeConflict          = "core:conflict"

	// Ticket state machine
	CodeInvalidTransition = "ticket:invalid_transition"
	CodeAlreadyActive     = "ticket:already_active"
	CodeTicketClosed      = "ticket:closed"

	// Rate limiting
	CodeRateLimited = "core:rate_limited"

	// Server errors
	CodeInternalError = "core:internal_error"
	CodeDegraded      = "core:degraded"
)

// coreErrors defines all error codes with their default messages and HTTP status
var coreErrors = []ErrorCode{
	// Authentication & Authorization
	{Code: CodeInvalidToken, Message: "Invalid or expired token", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeForbidden, Message: "Permission denied", HTTPStatus: http.StatusForbidden},
	{Code: CodeBanned, Message: "Account is banned", HTTPStatus: http.StatusForbidden},
	{Code: CodeNotApproved, Message: "Account is awaiting approval", HTTPStatus: http.StatusForbidden},
	{Code: CodeBadCredentials, Message: "Wrong identity or secret", HTTPStatus: http.StatusUnauthorized},

	// Request errors
	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},

	// Resource errors
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeDuplicateIdentity, Message: "Identity is already taken", HTTPStatus: http.StatusConflict},
	{Code: CodeConflict, Message: "Resource conflict", HTTPStatus: http.StatusConflict},

	// Ticket state machine
	{Code: CodeInvalidTransition, Message: "Illegal ticket transition", HTTPStatus: http.StatusConflict},
	{Code: CodeAlreadyActive, Message: "Ticket was already accepted", HTTPStatus: http.StatusConflict},
	{Code: CodeTicketClosed, Message: "Ticket is closed", HTTPStatus: http.StatusConflict},

	// Rate limiting
	{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},

	// Server errors
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeDegraded, Message: "Persistence temporarily degraded", HTTPStatus: http.StatusServiceUnavailable},
}

func init() {
	// Register all core error codes
	for _, e := range coreErrors {
		Registry.Register(e)
	}
}
