// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Broker errors
	ErrBrokerNotConfigured = &Error{Code: "BROKER_NOT_CONFIGURED", Message: "brokerage is not configured"}
	ErrBrokerFailed        = &Error{Code: "BROKER_FAILED", Message: "brokerage request failed"}
	ErrOrderFailed         = &Error{Code: "ORDER_FAILED", Message: "order placement failed"}
	ErrQuoteUnavailable    = &Error{Code: "QUOTE_UNAVAILABLE", Message: "no quote available"}
	ErrPositionNotFound    = &Error{Code: "POSITION_NOT_FOUND", Message: "no open position for symbol"}

	// Session errors
	ErrSessionNotRunning   = &Error{Code: "SESSION_NOT_RUNNING", Message: "trading session is not running"}
	ErrSessionNotPaused    = &Error{Code: "SESSION_NOT_PAUSED", Message: "trading session is not paused"}
	ErrBalanceBelowMinimum = &Error{Code: "BALANCE_BELOW_MINIMUM", Message: "account balance below minimum threshold"}

	// Engine errors
	ErrCycleInFlight     = &Error{Code: "CYCLE_IN_FLIGHT", Message: "an execution cycle is already running"}
	ErrNoActiveStrategy  = &Error{Code: "NO_ACTIVE_STRATEGY", Message: "no active strategies available"}
	ErrNoEligibleAsset   = &Error{Code: "NO_ELIGIBLE_ASSET", Message: "no eligible assets available"}
	ErrQuantityTooSmall  = &Error{Code: "QUANTITY_TOO_SMALL", Message: "computed quantity is not positive"}
	ErrSymbolUnsupported = &Error{Code: "SYMBOL_UNSUPPORTED", Message: "symbol not supported by brokerage"}

	// Storage errors
	ErrRecordNotFound = &Error{Code: "RECORD_NOT_FOUND", Message: "record not found"}
	ErrStorageFailed  = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
