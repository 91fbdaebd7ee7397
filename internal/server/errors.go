package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	ErrCodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrCodeCompletionFailed ErrorCode = "COMPLETION_FAILED"
	ErrCodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	ErrCodeRequestTooLarge  ErrorCode = "REQUEST_TOO_LARGE"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string    `json:"error"`                // HTTP status text
	Message   string    `json:"message"`              // Human-readable description
	Code      ErrorCode `json:"code"`                 // Machine-readable error code
	RequestID string    `json:"request_id,omitempty"` // Request ID for debugging
}

// writeError writes a structured error, tagging it with the chi request id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	resp := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
