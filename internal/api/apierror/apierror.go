// Package apierror defines the error bodies of the mock marketplace API and
// installs them as huma's error model, so every failure answers with the
// {"detail": ...}, {"error": ...} or field-map bodies the client parses.
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Error is an HTTP error with a free-form JSON object body.
type Error struct {
	status int
	body   map[string]any
}

func init() {
	huma.NewError = newError
}

// Detail returns {"detail": msg}.
func Detail(status int, msg string) *Error {
	return &Error{status: status, body: map[string]any{"detail": msg}}
}

// Coded returns {"detail": msg, "code": code}.
func Coded(status int, msg, code string) *Error {
	return &Error{status: status, body: map[string]any{"detail": msg, "code": code}}
}

// Message returns {"error": msg}.
func Message(status int, msg string) *Error {
	return &Error{status: status, body: map[string]any{"error": msg}}
}

// Fields returns a 400 keyed by field name, each with its messages.
func Fields(errs map[string][]string) *Error {
	body := make(map[string]any, len(errs))
	for k, v := range errs {
		body[k] = v
	}
	return &Error{status: http.StatusBadRequest, body: body}
}

// NotFound is the 404 for a missing object.
func NotFound() *Error {
	return Detail(http.StatusNotFound, "Not found.")
}

// Forbidden is the 403 for an object the caller does not own.
func Forbidden() *Error {
	return Detail(http.StatusForbidden, "You do not have permission to perform this action.")
}

func (e *Error) Error() string {
	for _, k := range []string{"detail", "error"} {
		if msg, ok := e.body[k].(string); ok {
			return msg
		}
	}
	return http.StatusText(e.status)
}

// GetStatus returns the HTTP status.
func (e *Error) GetStatus() int {
	return e.status
}

// MarshalJSON encodes the body alone.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.body)
}

// Schema documents the body as a free-form object.
func (*Error) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:                 huma.TypeObject,
		Description:          "Error body: detail (with an optional code), error, or messages keyed by field name.",
		AdditionalProperties: true,
	}
}

// newError replaces huma's RFC 9457 model. An *Error among errs is written
// as is; input parse and validation failures become 400s.
func newError(status int, msg string, errs ...error) huma.StatusError {
	for _, err := range errs {
		var e *Error
		if errors.As(err, &e) {
			return e
		}
	}
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		return validation(msg, errs)
	}
	return Detail(status, msg)
}

// validation maps huma error details onto field errors. A detail located
// at the body itself is a parse failure.
func validation(msg string, errs []error) *Error {
	fields := map[string][]string{}
	for _, err := range errs {
		var d *huma.ErrorDetail
		if !errors.As(err, &d) {
			continue
		}
		_, name, _ := strings.Cut(d.Location, ".")
		if name == "" {
			return Detail(http.StatusBadRequest, "JSON parse error - "+d.Message)
		}
		fields[name] = append(fields[name], d.Message)
	}
	if len(fields) == 0 {
		return Detail(http.StatusBadRequest, msg)
	}
	return Fields(fields)
}
