// Package apperrors defines the error kinds shared across the memory
// service: the knowledge graph, the sliding window, the extractors, and
// the HTTP surface all return *AppError so callers can branch on Kind
// instead of string-matching messages.
package apperrors

import "fmt"

// Kind categorizes an AppError for callers that need to decide how to
// react (retry, surface to the user, map to an HTTP status).
type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindInvalidInput Kind = "INVALID_INPUT"
	KindTransient   Kind = "TRANSIENT"
	KindCorrupt     Kind = "CORRUPT"
	KindOutOfWindow Kind = "OUT_OF_WINDOW"
)

// AppError is the error type returned across package boundaries in this
// module. Message is safe to show an operator; Err, when present, holds
// the underlying cause for logging.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFound reports a missing session, entity, turn, or edge.
func NewNotFound(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewInvalidInput reports a malformed request: bad JSON, a validation
// failure, an unparseable UpdatePlan.
func NewInvalidInput(message string) error {
	return &AppError{Kind: KindInvalidInput, Message: message}
}

// NewTransient reports a failure a caller may retry: an LLM timeout, a
// circuit-breaker trip, a lock that could not be acquired in time.
func NewTransient(message string, err error) error {
	return &AppError{Kind: KindTransient, Message: message, Err: err}
}

// NewCorrupt reports on-disk state that failed to parse or violated an
// invariant on load (a graph file, a buffer mirror, a state snapshot).
func NewCorrupt(message string, err error) error {
	return &AppError{Kind: KindCorrupt, Message: message, Err: err}
}

// NewOutOfWindow reports an operation addressed at a turn the sliding
// window has already evicted or not yet admitted.
func NewOutOfWindow(message string) error {
	return &AppError{Kind: KindOutOfWindow, Message: message}
}

// Wrap preserves an existing AppError's Kind while prefixing Message,
// or creates a Transient error for a plain error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Kind:    appErr.Kind,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}
	return &AppError{Kind: KindTransient, Message: message, Err: err}
}

func kindOf(err error) (Kind, bool) {
	appErr, ok := err.(*AppError)
	if !ok {
		return "", false
	}
	return appErr.Kind, true
}

func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

func IsInvalidInput(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidInput
}

func IsTransient(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransient
}

func IsCorrupt(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindCorrupt
}

func IsOutOfWindow(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindOutOfWindow
}

// StatusCode maps a Kind to the HTTP status the httpapi package should
// answer with; used at the handler boundary only.
func StatusCode(err error) int {
	k, ok := kindOf(err)
	if !ok {
		return 500
	}
	switch k {
	case KindNotFound:
		return 404
	case KindInvalidInput:
		return 400
	case KindOutOfWindow:
		return 409
	case KindTransient:
		return 500
	case KindCorrupt:
		return 500
	default:
		return 500
	}
}
