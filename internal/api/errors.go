package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed API call by how the UI should react to it.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindUnauthorized
	KindNotFound
	KindClient
	KindRateLimited
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned for every failed request. Message carries the server's
// structured {message, status} payload when one was sent.
type Error struct {
	Kind    ErrorKind
	Status  int
	Method  string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// errorPayload is the structured error body returned by mutation endpoints.
type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// kindForStatus maps an HTTP status code to an ErrorKind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// KindOf reports the ErrorKind of err, and false when err is not an API error.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsRateLimited reports whether err (or any error in its chain) is a 429.
func IsRateLimited(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimited
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindUnauthorized
}

// UserMessage converts err into the text shown in the UI banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindNetwork:
		return "Cannot reach the server. Check your connection."
	case KindRateLimited:
		return "Rate limited by the server; showing stale data."
	case KindServer:
		return "Server error, try again later."
	case KindUnauthorized:
		return "Your session has expired. Run 'robolab login'."
	case KindNotFound:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Not found."
	default:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.Status)
	}
}
