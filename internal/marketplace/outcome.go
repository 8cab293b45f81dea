// Package marketplace talks to the Mercado Livre API on behalf of the
// storefront: it normalizes queries, manages OAuth credentials, retries
// across auth failures and maps upstream payloads into the storefront schema.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable marks transport-level failures reaching the marketplace
// (DNS, connection refused, timeouts). No HTTP status is available.
var ErrUnavailable = errors.New("marketplace unavailable")

// OutcomeKind classifies an upstream response.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeAuthFailure
	OutcomeOtherFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeOtherFailure:
		return "other_failure"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one logical upstream request.
type Outcome struct {
	Kind   OutcomeKind
	Status int
	// Body is the raw response body.
	Body []byte
	// Data is the decoded failure body: a JSON value when the response
	// declared JSON and parsed, otherwise the raw text. Nil on success.
	Data any
	// Attempts is the number of upstream calls made, at most 3.
	Attempts int
}

// Err returns nil for a successful outcome and an *UpstreamError otherwise.
func (o *Outcome) Err() error {
	if o.Kind == OutcomeSuccess {
		return nil
	}
	return &UpstreamError{Kind: o.Kind, Status: o.Status, Data: o.Data}
}

// UpstreamError carries a non-2xx marketplace response through to the
// caller so its status and body can be mirrored.
type UpstreamError struct {
	Kind   OutcomeKind
	Status int
	Data   any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("marketplace %s (status %d)", e.Kind, e.Status)
}

func classify(status int) OutcomeKind {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case isAuthStatus(status):
		return OutcomeAuthFailure
	default:
		return OutcomeOtherFailure
	}
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// StatusOf extracts the upstream HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr.Status, true
	}
	return 0, false
}

// IsTransient reports whether err is a network-level failure rather than
// a caller cancellation or a classified HTTP response.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
