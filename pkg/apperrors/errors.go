package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error so callers can tell bad input apart from state-machine
// violations and collaborator outages.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeInvalidTransition   Code = "invalid_transition"
	CodePaymentNotConfirmed Code = "payment_not_confirmed"
	CodeLedgerUnavailable   Code = "ledger_unavailable"
	CodeNotFound            Code = "not_found"
	CodeForbidden           Code = "forbidden"
	CodeConflict            Code = "conflict"
	CodeInternal            Code = "internal"
)

// Error is the single error type surfaced by the core services.
type Error struct {
	Code    Code
	Message string
	// Field names the offending input for validation errors.
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or out-of-range input on a named field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// InvalidTransition reports a state-machine violation.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %q to %q", from, to),
	}
}

func PaymentNotConfirmed(message string) *Error {
	return &Error{Code: CodePaymentNotConfirmed, Message: message}
}

func LedgerUnavailable(err error) *Error {
	return &Error{Code: CodeLedgerUnavailable, Message: "ledger unavailable", Err: err}
}

func NotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// HTTPStatus maps a code onto the status the API answers with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeConflict:
		return http.StatusConflict
	case CodePaymentNotConfirmed:
		return http.StatusPaymentRequired
	case CodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
