package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/storekeep/pkg/validator"
)

// Envelope is the standard JSON response structure.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Data: data})
}

// Error writes an error envelope derived from the given error.
//
// Validation errors render as 422 with per-field details; HTTPError values
// use their own status and key; anything else is a generic 500 so internal
// error text never leaks to clients.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}

	var verrs validator.ValidationErrors
	var httpErr HTTPError
	switch {
	case errors.As(err, &verrs):
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
		detail.Message = "request validation failed"
		detail.Details = verrs.Details()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: detail})
}
