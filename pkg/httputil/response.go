package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON encodes v and writes it with status. The body is marshalled
// before any header is sent, so an encoding failure still becomes a 500.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteInternalError(w, r, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// WriteError writes an ErrorResponse carrying the request id of r
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body, _ := json.Marshal(ErrorResponse{
		Error:     message,
		Code:      statusCode(status),
		RequestID: RequestID(r.Context()),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// WriteBadRequest writes a 400
func WriteBadRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	WriteError(w, r, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// WriteNotFound writes a 404
func WriteNotFound(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	WriteError(w, r, http.StatusNotFound, fmt.Sprintf(format, args...))
}

// WriteUnavailable writes a 503
func WriteUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, http.StatusServiceUnavailable, err.Error())
}

// WriteInternalError writes a 500
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, http.StatusInternalServerError, err.Error())
}

// statusCode turns a status into a snake_case code, e.g. 404 -> "not_found"
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("status_%d", status)
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
