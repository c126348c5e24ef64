// Package failure defines the error taxonomy for the delivery subsystem.
// Every async entry point converts provider/platform errors into one of these
// kinds instead of letting raw errors bubble into command or UI code.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindUnsupported marks a permanently unavailable environment. No retries.
	KindUnsupported Kind = "unsupported"
	// KindPermissionDenied marks a user-driven, terminal denial. No retries, no prompts.
	KindPermissionDenied Kind = "permission_denied"
	// KindTransientProvider marks a provider failure retried with a bounded count.
	KindTransientProvider Kind = "transient_provider"
	// KindBackend marks a backend call failure, surfaced only for user-initiated actions.
	KindBackend Kind = "backend"
	// KindPayload marks a malformed payload that degraded to a generic notification.
	KindPayload Kind = "payload"
	// KindFeed marks a feed mutation failure; local optimistic state is retained.
	KindFeed Kind = "feed"
)

// Failure is a classified error.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// New creates a failure of the given kind.
func New(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Wrap wraps err as a failure of the given kind.
func Wrap(err error, kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or empty if err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTerminal reports whether err represents a state that must never be retried.
func IsTerminal(err error) bool {
	k := KindOf(err)
	return k == KindUnsupported || k == KindPermissionDenied
}
