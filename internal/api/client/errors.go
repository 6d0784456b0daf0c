package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"syscall"
)

// CodeTokenExpired is the server error code for an expired access token.
const CodeTokenExpired = "token_expired"

var (
	// ErrSessionExpired matches any APIError caused by an authorization
	// failure (401, 403, or a token_expired code).
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned before calling an endpoint that needs
	// a token when none is stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	errConnRefused = syscall.ECONNREFUSED
)

// APIError is a non-2xx response from the marketplace API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Detail     string
	Body       string
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       string(body),
	}
	var payload struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	//nolint:errcheck // best-effort error parsing
	_ = json.Unmarshal(body, &payload)
	e.Code = payload.Code
	e.Detail = payload.Detail
	if e.Detail == "" {
		e.Detail = payload.Error
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// SessionExpired reports whether the failure ends the session.
func (e *APIError) SessionExpired() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == CodeTokenExpired
}

// Is lets errors.Is(err, ErrSessionExpired) match authorization failures.
func (e *APIError) Is(target error) bool {
	return target == ErrSessionExpired && e.SessionExpired()
}

// NotFound reports whether the resource does not exist.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
