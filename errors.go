package rewire

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotYetConstructed is returned when a placeholder is read before its
	// redirect is set: external code called into a half-built object too early.
	ErrNotYetConstructed = errors.New("placeholder target not yet constructed")

	// ErrPlaceholderBound is returned when a placeholder redirect is set twice.
	ErrPlaceholderBound = errors.New("placeholder already redirected")

	// ErrBindingNotFound is returned when no binding is registered for a key.
	ErrBindingNotFound = errors.New("no binding registered for key")

	// ErrDuplicateBinding is returned when a key is bound twice.
	ErrDuplicateBinding = errors.New("binding already registered for key")

	// ErrNoAdapter is returned when a cycle should be broken with a
	// placeholder but no adapter is registered for the interface type.
	ErrNoAdapter = errors.New("no placeholder adapter registered for type")

	// ErrTypeMismatch is returned when a resolved value cannot be cast to the
	// requested type.
	ErrTypeMismatch = errors.New("resolved value does not match requested type")
)

// CycleError is raised when a dependency cycle cannot be broken with a
// placeholder. Chain is the resolution path from the chain root to the
// requesting node, with the cyclic request appended; At indexes the node the
// cycle closes on.
type CycleError struct {
	Chain []Key
	At    int
}

var _ error = &CycleError{}

func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString("unbreakable dependency cycle:\n")
	for i, k := range e.Chain {
		fmt.Fprintf(&b, "  %d: %s", i, k)
		if i == e.At {
			b.WriteString(" <- cycle closes here")
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// IncompleteConstructionError is raised by finalize when a placeholder never
// received its redirect. It indicates a bookkeeping bug, not a user error.
type IncompleteConstructionError struct {
	Unredirected int
}

var _ error = &IncompleteConstructionError{}

func (e *IncompleteConstructionError) Error() string {
	return fmt.Sprintf("incomplete construction: %d placeholder(s) never redirected", e.Unredirected)
}

// ReentrancyError is raised when a node under construction is resolved again
// without going through the cycle path. This must never happen if cycle
// detection is correct, so it is reported as an engine bug.
type ReentrancyError struct {
	Key Key
}

var _ error = &ReentrancyError{}

func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("internal: construction of %s re-entered outside the cycle path", e.Key)
}

type configurationError struct {
	message string
	cause   error
}

var _ error = &configurationError{}

func newConfigurationError(message string, cause error) *configurationError {
	return &configurationError{message, cause}
}

func (e *configurationError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s:\n%s", e.message, e.cause)
}

func (e *configurationError) Unwrap() error { return e.cause }
