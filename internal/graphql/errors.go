package graphql

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError reports that a request never produced a GraphQL response:
// the endpoint was unreachable, timed out, or answered with a non-2xx status
// and no GraphQL errors.
type TransportError struct {
	Err        error
	Op         string
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: endpoint returned HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Error is one entry of a GraphQL response's errors array.
type Error struct {
	Extensions map[string]any `json:"extensions,omitempty"`
	Message    string         `json:"message"`
}

// Code returns the extensions.code value, if any.
func (e Error) Code() string {
	if code, ok := e.Extensions["code"].(string); ok {
		return code
	}
	return ""
}

// QueryError reports errors returned by the backend for an operation.
type QueryError struct {
	Op     string
	Errors []Error
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		if code := ge.Code(); code != "" {
			msgs = append(msgs, fmt.Sprintf("%s (%s)", ge.Message, code))
			continue
		}
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("%s: backend error: %s", e.Op, strings.Join(msgs, "; "))
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsQuery reports whether err is or wraps a *QueryError.
func IsQuery(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// Kind returns a short classification of err for logs and the audit journal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTransport(err):
		return "transport"
	case IsQuery(err):
		return "backend"
	default:
		return "internal"
	}
}
