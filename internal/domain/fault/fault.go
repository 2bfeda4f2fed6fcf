package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Code standardizes failure semantics across the ledger and progress domains.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeInsufficientCredits Code = "insufficient_credits"
	CodeAccountNotFound     Code = "account_not_found"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeUnauthorized        Code = "unauthorized"
	CodeStorageFailure      Code = "storage_failure"
	CodeAggregationFailure  Code = "aggregation_failure"
	CodeInternal            Code = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a domain error with explicit code + operation.
func New(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with domain error semantics.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code Code) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Code == code
}

// CodeOf extracts the domain code when available, CodeInternal otherwise.
func CodeOf(err error) Code {
	var fe *Error
	if !errors.As(err, &fe) {
		return CodeInternal
	}
	return fe.Code
}

// As unwraps err to the outermost domain error.
func As(err error) (*Error, bool) {
	var fe *Error
	if !errors.As(err, &fe) {
		return nil, false
	}
	return fe, true
}

// Retryable reports whether the caller may retry the whole operation.
func Retryable(err error) bool {
	return IsCode(err, CodeStorageFailure)
}
