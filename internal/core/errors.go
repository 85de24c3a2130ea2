package core

import (
	"errors"
	"fmt"
)

// Error is a coded journal failure. Two Errors match under errors.Is when
// their codes are equal, so a wrapped ErrTradeNotFound still satisfies
// errors.Is(err, ErrTradeNotFound).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError copies base with cause attached.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps a formatted cause in base.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	if ce, ok := AsError(err); ok {
		return ce.Code
	}
	return ""
}

var (
	// Journal errors
	ErrTradeNotFound = &Error{Code: "TRADE_NOT_FOUND", Message: "trade not found"}
	ErrInvalidTrade  = &Error{Code: "INVALID_TRADE", Message: "trade input invalid"}
	ErrNoData        = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrOutOfRange    = &Error{Code: "OUT_OF_RANGE", Message: "requested period out of range"}

	// Storage errors
	ErrStoreFailed = &Error{Code: "STORE_FAILED", Message: "trade store operation failed"}

	// Access errors
	ErrUnauthorized     = &Error{Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrForbidden        = &Error{Code: "FORBIDDEN", Message: "operation not permitted for role"}
	ErrPasswordRejected = &Error{Code: "PASSWORD_REJECTED", Message: "password change rejected"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "analysis unavailable"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
	ErrSuperseded = &Error{Code: "SUPERSEDED", Message: "request superseded by a newer one"}

	// Job errors
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}
)
