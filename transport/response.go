package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HeaderAuthorization is the default header name carrying the bearer credential.
const HeaderAuthorization = "Authorization"

// HeaderRequestID carries the per-operation correlation identifier.
const HeaderRequestID = "X-Request-ID"

// Response is a settled HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned when the remote service answers outside the 2xx range.
type StatusError struct {
	Method   string
	Path     string
	Response *Response
}

func (e *StatusError) Error() string {
	if e == nil || e.Response == nil {
		return "transport: request failed"
	}
	if msg, ok := e.RemoteMessage(); ok {
		return fmt.Sprintf("transport: %s %s failed (%d): %s", e.Method, e.Path, e.Response.StatusCode, msg)
	}
	return fmt.Sprintf("transport: %s %s failed with status %d", e.Method, e.Path, e.Response.StatusCode)
}

// StatusCode returns the HTTP status of the failed exchange, or 0 when unknown.
func (e *StatusError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// RemoteMessage extracts the string "error" member of a JSON error body.
// An absent, empty, or non-string member reports false.
func (e *StatusError) RemoteMessage() (string, bool) {
	if e == nil || e.Response == nil || len(e.Response.Body) == 0 {
		return "", false
	}
	var payload struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(e.Response.Body, &payload); err != nil {
		return "", false
	}
	if payload.Error == nil || *payload.Error == "" {
		return "", false
	}
	return *payload.Error, true
}
