package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Standard API errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrQuotaExceeded    = errors.New("monthly quota exceeded")
	ErrInternal         = errors.New("internal server error")
	ErrMeterUnavailable = errors.New("usage metering unavailable")
	ErrProviderFailed   = errors.New("model provider request failed")
)

// ErrorResponse defines the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error code constants
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeUnavailable   = "UNAVAILABLE"
	CodeUpstreamError = "UPSTREAM_ERROR"
)

// WriteError writes a JSON error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, statusCode int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: err.Error(),
		Code:  code,
	}

	// Ignore encoding errors - nothing we can do at this point
	_ = json.NewEncoder(w).Encode(response)
}

// WriteJSON writes a JSON response to the HTTP response writer
func WriteJSON(w http.ResponseWriter, data interface{}, statusCode int) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(data)
}

// WriteErrorFromStandard is a helper that maps standard errors to HTTP status codes
func WriteErrorFromStandard(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		WriteError(w, err, http.StatusUnauthorized, CodeUnauthorized)
	case errors.Is(err, ErrBadRequest):
		WriteError(w, err, http.StatusBadRequest, CodeBadRequest)
	case errors.Is(err, ErrQuotaExceeded):
		WriteError(w, err, http.StatusTooManyRequests, CodeQuotaExceeded)
	case errors.Is(err, ErrMeterUnavailable):
		WriteError(w, err, http.StatusServiceUnavailable, CodeUnavailable)
	case errors.Is(err, ErrProviderFailed):
		WriteError(w, err, http.StatusBadGateway, CodeUpstreamError)
	default:
		WriteError(w, err, http.StatusInternalServerError, CodeInternal)
	}
}
