package service

import "fmt"

// The error taxonomy callers dispatch on. Bid-level issues never show up
// here; they are warnings carried alongside a successful result.

// ValidationError reports a malformed request: an unknown auction type, a
// negative bid, a missing field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports a missing record: an unknown fingerprint or an
// unknown character on a charge or correction.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.What) }

// ConflictError reports a fingerprint collision during auction creation.
type ConflictError struct {
	Fingerprint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("auction with fingerprint %s already exists", e.Fingerprint)
}

// PolicyError reports an operation rejected by policy, such as a cancellation
// past the grace window.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }
