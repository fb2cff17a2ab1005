// Package drivererr defines the typed errors raised by the extension bridge.
// Every failure carries a machine-readable Kind so the driver layer can tell
// a recoverable page error from a browser that must be restarted.
package drivererr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// NoConnectionAvailable: no extension connection arrived in time.
	NoConnectionAvailable Kind = "no_connection_available"
	// UnknownCommand: the catalog has no parameter entry for a command kind.
	UnknownCommand Kind = "unknown_command"
	// KeyNotFound: the catalog has no wire name for a command kind.
	KeyNotFound Kind = "key_not_found"
	// MalformedResponse: the extension's result could not be split or decoded.
	MalformedResponse Kind = "malformed_response"
	// InvalidRequest: a control request or one of its parameters could not be decoded.
	InvalidRequest Kind = "invalid_request"

	NoSuchWindow          Kind = "no_such_window"
	NoSuchElement         Kind = "no_such_element"
	NoSuchFrame           Kind = "no_such_frame"
	NotImplemented        Kind = "not_implemented"
	StaleElementReference Kind = "stale_element_reference"
	ElementNotVisible     Kind = "element_not_visible"
	InvalidElementState   Kind = "invalid_element_state"
	XPathLookupError      Kind = "xpath_lookup_error"
	GenericDriverError    Kind = "generic_driver_error"
	// FatalDriverError: the browser or extension may be unrecoverable.
	FatalDriverError Kind = "fatal_driver_error"
)

// Fixed messages substituted by FromStatus.
const (
	NativeEventFailureMessage = "native event failure: the browser could not deliver a native input event"
	InternalBrowserMessage    = "an internal error occurred in the browser; if this persists, restart the browser and retry the test in isolation"
)

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error formats the error as "kind: message[: cause]".
func (e *E) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "(no message)"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *E) Unwrap() error { return e.Err }

// Is matches a Kind target, so errors.Is(err, drivererr.NoSuchElement) works.
func (e *E) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Wrap returns an error of kind with msg that unwraps to err.
func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }

// New returns an error of kind with msg.
func New(kind Kind, msg string) *E { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "".
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err asks the caller to restart the browser.
func IsFatal(err error) bool {
	return errors.Is(err, FatalDriverError)
}

var statusKinds = map[int]Kind{
	2:   GenericDriverError,
	3:   NoSuchWindow,
	7:   NoSuchElement,
	8:   NoSuchFrame,
	9:   NotImplemented,
	10:  StaleElementReference,
	11:  ElementNotVisible,
	12:  InvalidElementState,
	13:  GenericDriverError,
	17:  GenericDriverError,
	19:  XPathLookupError,
	99:  GenericDriverError,
	500: FatalDriverError,
}

// FromStatus maps an extension status code and message to an error.
// Status 0 returns nil. Codes outside the table raise GenericDriverError.
func FromStatus(status int, message string) error {
	if status == 0 {
		return nil
	}

	kind, ok := statusKinds[status]
	if !ok {
		msg := fmt.Sprintf("unrecognized status code %d", status)
		if message != "" {
			msg += ": " + message
		}
		return &E{Kind: GenericDriverError, Status: status, Message: msg}
	}

	switch status {
	case 99:
		message = NativeEventFailureMessage
	case 500:
		if message == "" {
			message = InternalBrowserMessage
		}
	}
	return &E{Kind: kind, Status: status, Message: message}
}
