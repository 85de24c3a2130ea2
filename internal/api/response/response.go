// Package response writes the JSON envelope shared by every API route.
package response

import (
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/newthinker/zella/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

var statusByCode = map[string]int{
	core.ErrTradeNotFound.Code:    http.StatusNotFound,
	core.ErrJobNotFound.Code:      http.StatusNotFound,
	core.ErrInvalidTrade.Code:     http.StatusBadRequest,
	core.ErrOutOfRange.Code:       http.StatusBadRequest,
	core.ErrConfigInvalid.Code:    http.StatusBadRequest,
	core.ErrPasswordRejected.Code: http.StatusBadRequest,
	core.ErrNoData.Code:           http.StatusUnprocessableEntity,
	core.ErrUnauthorized.Code:     http.StatusUnauthorized,
	core.ErrForbidden.Code:        http.StatusForbidden,
	core.ErrSuperseded.Code:       http.StatusConflict,
	core.ErrLLMFailed.Code:        http.StatusBadGateway,
	core.ErrLLMTimeout.Code:       http.StatusGatewayTimeout,
	core.ErrConfigMissing.Code:    http.StatusServiceUnavailable,
	core.ErrStoreFailed.Code:      http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status. Errors without a known code
// are internal errors.
func StatusFor(err error) int {
	if status, ok := statusByCode[core.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC(), RequestID: w.Header().Get("X-Request-ID")},
	})
}

// Error writes an error response. Only *core.Error details reach the
// client. Causes of 5xx errors are withheld.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	if ce, ok := core.AsError(err); ok {
		detail.Code, detail.Message = ce.Code, ce.Message
		if ce.Cause != nil && status < http.StatusInternalServerError {
			detail.Cause = ce.Cause.Error()
		}
	}
	write(w, status, ErrorResponse{Error: detail})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Fail writes err with the status StatusFor picks.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// Decode reads a JSON request body into v. Malformed bodies are reported
// with the given error code.
func Decode(r *http.Request, v any, base *core.Error) error {
	if r.Body == nil {
		return core.WrapError(base, errors.New("empty body"))
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.WrapError(base, err)
	}
	return nil
}
