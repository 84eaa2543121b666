// Package api holds the HTTP response envelope and request decoding helpers
// shared by all handlers.
package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes shared across handlers.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeAuthTokenInvalid     = "AUTH_TOKEN_INVALID"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeNotFound             = "RESOURCE_NOT_FOUND"
	CodeLoginExists          = "LOGIN_EXISTS"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeLicenseExists        = "LICENSE_EXISTS"
	CodeOptimisticLock       = "OPTIMISTIC_LOCK"
	CodeSignatureMismatch    = "SIGNATURE_MISMATCH"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodePasswordPolicy       = "PASSWORD_POLICY_VIOLATION"
	CodeInvalidPassword      = "INVALID_PASSWORD"
	CodeAccountUnverified    = "ACCOUNT_UNVERIFIED"
	CodeAccountInactive      = "ACCOUNT_INACTIVE"
	CodeRateExists           = "RATE_EXISTS"
	CodeRateAlreadyEffective = "RATE_ALREADY_EFFECTIVE"
	CodeAccessLevelConflict  = "ACCESS_LEVEL_CONFLICT"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Response is the standard response format.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error is the error detail inside a Response.
type Error struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// WriteSuccess writes a success envelope. A nil data with StatusNoContent
// produces an empty body.
func WriteSuccess(w http.ResponseWriter, statusCode int, data any) {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	})
}
