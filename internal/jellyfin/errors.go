package jellyfin

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable      = errors.New("jellyfin: host unreachable or transport failure")
	ErrBadResponse      = errors.New("jellyfin: invalid response format or empty body")
	ErrUnauthorized     = errors.New("jellyfin: credentials rejected")
	ErrNotFound         = errors.New("jellyfin: resource not found")
	ErrServer           = errors.New("jellyfin: server error")
	ErrPairingTimeout   = errors.New("jellyfin: quick connect pairing timed out")
	ErrPairingCancelled = errors.New("jellyfin: quick connect pairing cancelled")
)

// Error is a rich error type that wraps the sentinel errors with context.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("jellyfin: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

func newError(sentinel error, op string, status int, err error) *Error {
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Err: err}
}
