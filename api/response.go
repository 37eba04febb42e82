// Package api defines the JSON response envelope used by the stats HTTP API.
package api

import (
	"encoding/json"
	"net/http"
)

// Error is the error payload sent to clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Response is the envelope every stats API endpoint returns.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// SetData sets the success payload, clearing any error.
func (rsp *Response) SetData(data any) {
	rsp.Data = data
	rsp.Error = nil
}

// SetError sets the error payload, clearing any data.
func (rsp *Response) SetError(code, message string) {
	rsp.Data = nil
	rsp.Error = &Error{Code: code, Message: message}
}

// Ok sends the envelope with a 200 status.
func (rsp *Response) Ok(w http.ResponseWriter) {
	rsp.write(w, http.StatusOK, "ok", nil)
}

// BadRequest sends the envelope with a 400 status.
func (rsp *Response) BadRequest(w http.ResponseWriter) {
	rsp.write(w, http.StatusBadRequest, "error", &Error{Code: "bad_request", Message: "Bad request"})
}

// NotFound sends the envelope with a 404 status.
func (rsp *Response) NotFound(w http.ResponseWriter) {
	rsp.write(w, http.StatusNotFound, "error", &Error{Code: "not_found", Message: "Not found"})
}

// InternalServerError sends the envelope with a 500 status.
func (rsp *Response) InternalServerError(w http.ResponseWriter) {
	rsp.write(w, http.StatusInternalServerError, "error", &Error{Code: "internal_server_error", Message: "Internal server error"})
}

func (rsp *Response) write(w http.ResponseWriter, code int, status string, fallback *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	rsp.Status = status
	if status == "error" && rsp.Error == nil {
		rsp.Error = fallback
	}
	_ = json.NewEncoder(w).Encode(rsp)
}
