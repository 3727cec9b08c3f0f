package gateway

import "fmt"

// Kind classifies gateway failures. Every error returned by a gateway
// call carries exactly one kind, and callers decide recoverability from
// it rather than from message text.
type Kind int

const (
	// KindTransport means no response reached us: dial failure, timeout,
	// connection reset. The request may or may not have been processed.
	KindTransport Kind = iota + 1
	// KindUpstream means the server answered with a structured business
	// error that does not fit a more specific kind.
	KindUpstream
	// KindValidation means the input was rejected before or by the first
	// validation layer; no side effect occurred upstream.
	KindValidation
	// KindStateConflict means the server detected a race: the payment
	// reference was already consumed, or its status changed between steps.
	KindStateConflict
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_failure"
	case KindUpstream:
		return "upstream_rejected"
	case KindValidation:
		return "validation_failed"
	case KindStateConflict:
		return "state_conflict"
	default:
		return "unknown"
	}
}

// Error is a classified gateway failure. Message is safe to surface to
// the user verbatim; Code is the machine-readable code from the server,
// empty for transport failures.
type Error struct {
	Kind    Kind
	Status  int // HTTP status, 0 when no response was received
	Code    string
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// AsError extracts a *Error from err if it is one.
func AsError(err error) (*Error, bool) {
	gwErr, ok := err.(*Error)
	return gwErr, ok
}

// IsConflictCode reports whether err is a state conflict carrying the
// given server code.
func IsConflictCode(err error, code string) bool {
	gwErr, ok := AsError(err)
	return ok && gwErr.Kind == KindStateConflict && gwErr.Code == code
}
