package api

import (
	"errors"
	"fmt"
)

// Kind classifies call failures the way the session layer needs them:
// a credential explicitly rejected by the server is the only failure that
// may tear a session down.
type Kind int

const (
	// KindTransient covers connectivity problems, timeouts and 5xx replies.
	KindTransient Kind = iota
	// KindAuthRejected means the server (or the local expiry check)
	// invalidated the credential: 401/403-equivalent.
	KindAuthRejected
	// KindValidation covers rejected input (400/422).
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthRejected:
		return "auth_rejected"
	case KindValidation:
		return "validation"
	default:
		return "transient"
	}
}

// Error is the classified failure returned by every Client call.
type Error struct {
	Kind    Kind
	Status  int // 0 when no HTTP round trip happened
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
}

// IsAuthRejected reports whether err is a server-confirmed credential rejection.
func IsAuthRejected(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindAuthRejected
}

// Message extracts the server-supplied message from err, or "" when none exists.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

func classify(status int) Kind {
	switch status {
	case 401, 403:
		return KindAuthRejected
	case 400, 422:
		return KindValidation
	default:
		return KindTransient
	}
}
