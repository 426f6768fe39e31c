package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication means the server rejected the credentials or site.
	ErrAuthentication = errors.New("authentication failed")
	// ErrConnectivity means the server could not be reached.
	ErrConnectivity = errors.New("server unreachable")
	// ErrNotFound means a lookup by id found nothing.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string // Tableau error code, e.g. "401001"
	Summary string
	Detail  string
	Body    string // raw body when it is not a Tableau error document
}

// errorResponse is the REST API error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status}
	var env errorResponse
	if err := json.Unmarshal(body, &env); err == nil && (env.Error.Code != "" || env.Error.Summary != "") {
		e.Code = env.Error.Code
		e.Summary = env.Error.Summary
		e.Detail = env.Error.Detail
	} else {
		e.Body = truncate(string(body), 200)
	}
	return e
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	switch {
	case e.Summary != "" && e.Detail != "":
		msg += fmt.Sprintf(": %s (%s): %s", e.Summary, e.Code, e.Detail)
	case e.Summary != "":
		msg += fmt.Sprintf(": %s (%s)", e.Summary, e.Code)
	case e.Body != "":
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps the HTTP status onto the package sentinels so callers can
// use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
