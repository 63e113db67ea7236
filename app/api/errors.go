package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

var (
	// ErrNetwork matches every NetworkError.
	ErrNetwork = errors.New("network failure")
	// ErrServer matches every ServerError.
	ErrServer = errors.New("server error")
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("invalid input")
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerError is a non-2xx response, or a 2xx response missing a field the
// client needs.
type ServerError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return "server error: " + e.Detail
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Detail)
}

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// ValidationError is a client-side check that failed before any request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	detailPath       = jp.MustParseString("$.detail")
	messagePath      = jp.MustParseString("$.message")
	errorMessagePath = jp.MustParseString("$.error.message")
	errorStringPath  = jp.MustParseString("$.error")
)

// parseServerError builds a ServerError from a failed response. FastAPI
// reports {"detail": "..."} or, for request validation, a list of objects
// carrying msg; other servers use message or error.message.
func parseServerError(status int, body []byte) *ServerError {
	e := &ServerError{StatusCode: status, Body: truncate(string(body), 2048)}
	if doc, err := oj.Parse(body); err == nil {
		e.Detail = extractDetail(doc)
	}
	if e.Detail == "" {
		e.Detail = genericDetail(status)
	}
	return e
}

func extractDetail(doc any) string {
	switch d := detailPath.First(doc).(type) {
	case string:
		if s := strings.TrimSpace(d); s != "" {
			return s
		}
	case []any:
		var msgs []string
		for _, item := range d {
			if m, ok := object(item); ok {
				if s, ok := m["msg"].(string); ok && s != "" {
					msgs = append(msgs, s)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	for _, x := range []jp.Expr{messagePath, errorMessagePath, errorStringPath} {
		if s, ok := x.First(doc).(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func genericDetail(status int) string {
	if text := http.StatusText(status); text != "" {
		return "request failed: " + strings.ToLower(text)
	}
	return "request failed"
}

// missingField reports a successful response without a field the caller needs.
func missingField(status int, field string) *ServerError {
	return &ServerError{StatusCode: status, Detail: fmt.Sprintf("response is missing %q", field)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
