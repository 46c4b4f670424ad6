// Package errs defines the tagged error shape surfaced across SDK boundaries.
//
// Every failure that leaves the wallet manager, transaction builder, event
// listener or contract interface is a *MovementError carrying one code from
// a closed set, a human message and a details map. Lower layers return plain
// wrapped errors; the boundary tags them with Wrap.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the failure class.
type Code string

const (
	CodeWalletNotFound         Code = "WALLET_NOT_FOUND"
	CodeWalletConnectionFailed Code = "WALLET_CONNECTION_FAILED"
	CodeWalletNotConnected     Code = "WALLET_NOT_CONNECTED"
	CodeWalletRejected         Code = "WALLET_REJECTED"
	CodeTransactionFailed      Code = "TRANSACTION_FAILED"
	CodeSimulationFailed       Code = "SIMULATION_FAILED"
	CodeViewFunctionFailed     Code = "VIEW_FUNCTION_FAILED"
	CodeInvalidEventHandle     Code = "INVALID_EVENT_HANDLE"
	CodeNetworkError           Code = "NETWORK_ERROR"
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeInvalidAddress         Code = "INVALID_ADDRESS"
	CodeTimeout                Code = "TIMEOUT"
)

// DetailOriginalError is the details key holding the wrapped cause.
const DetailOriginalError = "originalError"

// MovementError is the tagged error returned by SDK components.
type MovementError struct {
	Code    Code
	Message string
	Details map[string]any
}

// New creates a tagged error. A nil details map is replaced with an empty one.
func New(code Code, message string, details map[string]any) *MovementError {
	if details == nil {
		details = make(map[string]any)
	}
	return &MovementError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap tags err with code. An error that is already a *MovementError is
// returned unchanged, keeping its original code even if another was asked for.
// The cause is stored under details["originalError"].
func Wrap(err error, code Code, message string, details map[string]any) *MovementError {
	if err == nil {
		return nil
	}
	var me *MovementError
	if errors.As(err, &me) {
		return me
	}

	e := New(code, message, details)
	e.Details[DetailOriginalError] = err
	return e
}

func (e *MovementError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the original cause when one was recorded.
func (e *MovementError) Unwrap() error {
	if e == nil {
		return nil
	}
	if cause, ok := e.Details[DetailOriginalError].(error); ok {
		return cause
	}
	return nil
}

// CodeOf returns the code of the first MovementError in err's chain, or "".
func CodeOf(err error) Code {
	var me *MovementError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
