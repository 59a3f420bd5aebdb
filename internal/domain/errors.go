// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist (or is not visible to the caller).
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the request collided with another in-flight request.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates the request was rejected before any side effect.
var ErrValidation = errors.New("validation error")

// ErrUpstream indicates the remote platform rejected or failed a call.
var ErrUpstream = errors.New("upstream error")

// ErrRemoteAccountMissing is returned when an owner has no linked remote account.
var ErrRemoteAccountMissing = fmt.Errorf("owner has no linked remote account: %w", ErrValidation)

// ErrNamespaceNotConfigured is returned when no remote group/namespace id is configured.
var ErrNamespaceNotConfigured = fmt.Errorf("remote namespace is not configured: %w", ErrValidation)

// Upstream error kinds.
const (
	UpstreamCreateFailed  = "UpstreamCreateFailed"
	UpstreamCommitFailed  = "UpstreamCommitFailed"
	UpstreamRequestFailed = "UpstreamRequestFailed"
)

// UpstreamError carries the status and body of a failed remote platform call.
// StatusCode is 0 when the request never produced a response.
type UpstreamError struct {
	Kind       string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: status %d: %s", e.Kind, e.Op, e.StatusCode, e.Body)
}

// Unwrap exposes the transport error, if any.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports ErrUpstream so callers can match the whole family.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Summary is the caller-safe description: kind, operation and status, without the raw body.
func (e *UpstreamError) Summary() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: remote platform unreachable", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: remote platform returned status %d", e.Kind, e.Op, e.StatusCode)
}

// Warning is a non-fatal sub-step failure that was logged and swallowed.
type Warning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// NewWarning builds a Warning from a step name and its error. Upstream
// errors contribute their Summary only.
func NewWarning(step string, err error) Warning {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return Warning{Step: step, Message: ue.Summary()}
	}
	return Warning{Step: step, Message: err.Error()}
}
