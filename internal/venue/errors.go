// Package venue implements the exchange REST client and the error taxonomy
// shared by everything that talks to it.
//
// Three error classes exist:
//
//   - TransientError: network/timeout/rate-limit/venue-side failures. The
//     market client retries these with backoff.
//   - FatalError: malformed request or authentication failure. Never retried.
//   - RejectionError: order-level rejection (insufficient funds, invalid
//     quantity). Never retried; the trade is marked failed and the cycle
//     continues.
package venue

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("venue: %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that retrying cannot fix.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("venue: %s: %v", e.Op, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// RejectionError marks an order rejected by the venue.
type RejectionError struct {
	Op     string
	Code   int
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("venue: %s rejected (code %d): %s", e.Op, e.Code, e.Reason)
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
