package source

import (
	"context"
	"fmt"
)

// Posting is the common record shape every adapter normalizes into.
// ID must be stable across fetches of the same posting from the same
// provider; it is the identity used for cross-source deduplication.
type Posting struct {
	ID          string
	Title       string
	Company     string
	City        string
	State       string
	Country     string
	URL         string
	Description string
	SalaryMin   *float64
	SalaryMax   *float64
	Currency    string
	PostedDate  string // YYYY-MM-DD or empty
	Source      string
}

// FailureReason classifies why a source fetch failed.
type FailureReason string

const (
	ReasonAuthError      FailureReason = "auth_error"
	ReasonRateLimited    FailureReason = "rate_limited"
	ReasonEmptyResult    FailureReason = "empty_result"
	ReasonTransportError FailureReason = "transport_error"
)

// Error is a typed per-source fetch failure.
type Error struct {
	Source string
	Reason FailureReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason extracts the failure reason from an adapter error, defaulting to
// transport_error for anything untyped.
func Reason(err error) FailureReason {
	if se, ok := err.(*Error); ok {
		return se.Reason
	}
	return ReasonTransportError
}

// Adapter fetches postings from one external provider for a target day.
// Each adapter owns its own endpoint, authentication, and pagination.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, day string) ([]Posting, error)
}
