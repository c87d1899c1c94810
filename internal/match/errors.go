// Package match implements the rule-forest match engine: given a byte
// source and a compiled magic.Forest, it walks the forest and selects the
// most specific matching rule.
package match

import "github.com/pkg/errors"

// SourceError wraps a failure reading from the byte source below the
// short-read level (spec.md §7): a genuine I/O failure, as opposed to a
// short read, which is a normal "no match" outcome.
type SourceError struct {
	cause error
}

func newSourceError(context string, cause error) *SourceError {
	if cause == nil {
		cause = errors.New(context)
	} else {
		cause = errors.Wrap(cause, context)
	}
	return &SourceError{cause: cause}
}

func (e *SourceError) Error() string { return e.cause.Error() }
func (e *SourceError) Unwrap() error { return e.cause }

// UsageError reports that a stream-shaped source could not be marked for
// bounded inspection, per spec.md §7.
type UsageError struct {
	cause error
}

func newUsageError(context string, cause error) *UsageError {
	if cause == nil {
		cause = errors.New(context)
	} else {
		cause = errors.Wrap(cause, context)
	}
	return &UsageError{cause: cause}
}

func (e *UsageError) Error() string { return e.cause.Error() }
func (e *UsageError) Unwrap() error { return e.cause }
