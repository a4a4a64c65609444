package directory

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the directory does not know the
	// requested payment code or nym.
	ErrNotFound = errors.New("directory: not found")

	// ErrUnauthorized is returned when a token or signature is rejected,
	// or when an authenticated operation targets an unclaimed code.
	ErrUnauthorized = errors.New("directory: unauthorized")

	// ErrConflict is returned when the request conflicts with directory
	// state, such as claiming an already claimed code or unfollowing a
	// nym that is not followed.
	ErrConflict = errors.New("directory: conflict")

	// ErrTransport is returned when the directory could not be reached at
	// all, as opposed to the service answering with an error status.
	ErrTransport = errors.New("directory: transport failure")
)

// StatusTransportFailure is the sentinel status code used when no response
// was received. It is distinct from every real HTTP status code so callers
// can tell "service said no" apart from "could not reach service".
const StatusTransportFailure = -1

// Status carries the outcome of a directory operation: the HTTP status code
// (or StatusTransportFailure) and the server-supplied or transport error
// message, if any. Expected API outcomes are represented as values rather
// than errors.
type Status struct {
	// Code is the HTTP status code of the response, or
	// StatusTransportFailure if no response was received.
	Code int

	// Message is the server's message for non-success responses, or the
	// underlying error text for transport failures.
	Message string
}

// OK returns true for the success status codes (200 and 201).
func (s Status) OK() bool {
	return s.Code == http.StatusOK || s.Code == http.StatusCreated
}

// Err maps the status onto the package's error taxonomy, returning nil for
// success statuses. The returned errors wrap the package sentinels so
// callers can match with errors.Is.
func (s Status) Err() error {
	switch {
	case s.OK():
		return nil

	case s.Code == StatusTransportFailure:
		return fmt.Errorf("%w: %s", ErrTransport, s.Message)

	case s.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, s.Message)

	case s.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, s.Message)

	case s.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrConflict, s.Message)

	default:
		return fmt.Errorf("directory: unexpected status %d: %s",
			s.Code, s.Message)
	}
}
