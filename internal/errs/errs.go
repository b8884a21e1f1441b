// Package errs defines the error kinds shared across the connector.
// Kinds are string-based for debuggability and stable log output.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller's propagation policy.
type Kind string

const (
	// KindConfiguration indicates missing or invalid connector settings
	// (token, workspace, default project). The administrator must fix
	// the configuration before retrying.
	KindConfiguration Kind = "configuration"

	// KindUnsupportedMethod indicates an HTTP method outside GET/POST/PUT.
	KindUnsupportedMethod Kind = "unsupported_method"

	// KindTransport indicates a network-level failure before any HTTP
	// status was received.
	KindTransport Kind = "transport"

	// KindRemoteAPI indicates a non-2xx status from the Toggl API. The
	// error message carries status and response body for diagnosis.
	KindRemoteAPI Kind = "remote_api"

	// KindDecode indicates a response body that is not valid JSON.
	KindDecode Kind = "decode"

	// KindNoEmployeeLinked indicates the calling user resolves to zero
	// employee records.
	KindNoEmployeeLinked Kind = "no_employee_linked"

	// KindAmbiguousEmployeeLink indicates the calling user resolves to
	// more than one employee record.
	KindAmbiguousEmployeeLink Kind = "ambiguous_employee_link"

	// KindUnknownRemoteUser indicates the configured Toggl username has
	// no match in the workspace user listing.
	KindUnknownRemoteUser Kind = "unknown_remote_user"

	// KindPaginationExhausted indicates the detailed report never
	// returned an empty page within the page ceiling.
	KindPaginationExhausted Kind = "pagination_exhausted"
)

// Error is the structured error returned by the connector packages.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "toggl.CreateProject"
	// Status and Body are set for KindRemoteAPI only.
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemoteAPI:
		return fmt.Sprintf("%s: API returned error: status %d: %s", e.Op, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. Use the field setters below for remote API details.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Remote builds a KindRemoteAPI error carrying status and body.
func Remote(op string, status int, body string) *Error {
	return &Error{Kind: KindRemoteAPI, Op: op, Status: status, Body: body}
}

// Configf builds a KindConfiguration error with a formatted message.
func Configf(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err or any error in its chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or the empty string for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
