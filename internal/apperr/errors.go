// Package apperr defines the error taxonomy shared by the workflows and the
// HTTP layer. Every error carries a stable code and the HTTP status it maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidationFailed   Code = "validation_failed"
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeNotVerified        Code = "not_verified"
	CodeMissingToken       Code = "missing_token"
	CodeInvalidToken       Code = "invalid_token"
	CodeTokenExpired       Code = "token_expired"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeOTPExpired         Code = "otp_expired"
	CodeOTPMismatch        Code = "otp_mismatch"
	CodeAlreadyVerified    Code = "already_verified"
	CodeTooManyAttempts    Code = "too_many_attempts"
	CodeDeliveryFailed     Code = "delivery_failed"
	CodeUploadFailed       Code = "upload_failed"
	CodePersistenceFailure Code = "persistence_failure"
)

var statusByCode = map[Code]int{
	CodeBadRequest:         http.StatusBadRequest,
	CodeValidationFailed:   http.StatusBadRequest,
	CodeDuplicateIdentity:  http.StatusConflict,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeNotVerified:        http.StatusForbidden,
	CodeMissingToken:       http.StatusUnauthorized,
	CodeInvalidToken:       http.StatusUnauthorized,
	CodeTokenExpired:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeOTPExpired:         http.StatusGone,
	CodeOTPMismatch:        http.StatusBadRequest,
	CodeAlreadyVerified:    http.StatusConflict,
	CodeTooManyAttempts:    http.StatusTooManyRequests,
	CodeDeliveryFailed:     http.StatusBadGateway,
	CodeUploadFailed:       http.StatusBadGateway,
	CodePersistenceFailure: http.StatusInternalServerError,
}

type Error struct {
	Code    Code
	Message string
	// Fields holds per-field messages for validation_failed.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against the exported sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidationFailed, Message: "validation failed", Fields: fields}
}

func Persistence(err error) *Error {
	return Wrap(err, CodePersistenceFailure, "storage unavailable")
}

// As extracts an *Error from err. Anything else is reported as a persistence
// failure so unknown errors never leak as 4xx.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Persistence(err)
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidationFailed   = New(CodeValidationFailed, "validation failed")
	ErrDuplicateIdentity  = New(CodeDuplicateIdentity, "username or email already taken")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid username or password")
	ErrNotVerified        = New(CodeNotVerified, "account email is not verified")
	ErrMissingToken       = New(CodeMissingToken, "no bearer token provided")
	ErrInvalidToken       = New(CodeInvalidToken, "invalid token")
	ErrTokenExpired       = New(CodeTokenExpired, "token expired")
	ErrForbidden          = New(CodeForbidden, "insufficient role")
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrOTPExpired         = New(CodeOTPExpired, "verification code expired, request a new one")
	ErrOTPMismatch        = New(CodeOTPMismatch, "verification code does not match")
	ErrAlreadyVerified    = New(CodeAlreadyVerified, "account already verified")
	ErrTooManyAttempts    = New(CodeTooManyAttempts, "too many invalid codes, request a new one")
	ErrDeliveryFailed     = New(CodeDeliveryFailed, "verification email could not be sent, request a resend")
	ErrUploadFailed       = New(CodeUploadFailed, "avatar upload failed")
	ErrPersistenceFailure = New(CodePersistenceFailure, "storage unavailable")
)
