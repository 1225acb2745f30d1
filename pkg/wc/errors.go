package wc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a member of the resolver's closed error taxonomy. Every
// error the package returns across a package boundary carries one of
// these kinds, recoverable with KindOf.
type Kind int

const (
	// KindResolverFailure covers any invariant violation not otherwise
	// classified: wrong op-depth, inconsistent kinds, a malformed
	// conflict skeleton.
	KindResolverFailure Kind = iota
	// KindNotLocked indicates a mutation was attempted without a
	// verified write-lock on the relevant op-root.
	KindNotLocked
	// KindNotInConflict indicates the caller asked to resolve a victim
	// that carries no tree conflict.
	KindNotInConflict
	// KindUnsupportedConflict indicates the conflict's operation is
	// neither update nor switch.
	KindUnsupportedConflict
	// KindNotMovedAway indicates the victim has no recorded move
	// destination.
	KindNotMovedAway
	// KindMixedRevisionSource indicates the move source spans multiple
	// revisions.
	KindMixedRevisionSource
	// KindSwitchedSubtree indicates the move source is under a
	// switched URL.
	KindSwitchedSubtree
	// KindObstructedUpdate indicates an attempt to add a second,
	// incompatible tree conflict on a node.
	KindObstructedUpdate
	// KindCancelled indicates the cancellation callback signaled.
	KindCancelled
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindNotLocked:
		return "NotLocked"
	case KindNotInConflict:
		return "NotInConflict"
	case KindUnsupportedConflict:
		return "UnsupportedConflict"
	case KindNotMovedAway:
		return "NotMovedAway"
	case KindMixedRevisionSource:
		return "MixedRevisionSource"
	case KindSwitchedSubtree:
		return "SwitchedSubtree"
	case KindObstructedUpdate:
		return "ObstructedUpdate"
	case KindCancelled:
		return "Cancelled"
	default:
		return "ResolverFailure"
	}
}

// Error is the concrete error type returned across the resolver's
// boundary. It pairs a taxonomy Kind with a message and, when the error
// originated from a collaborator (the node store, the merger), the
// wrapped cause.
type Error struct {
	kind  Kind
	cause error
}

// newError constructs an Error of the given kind with a formatted
// message and no wrapped cause.
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, cause: errors.Errorf(format, args...)}
}

// wrapError constructs an Error of the given kind around a collaborator
// failure, preserving the original error in the chain so that
// errors.Cause still reaches it.
func wrapError(kind Kind, cause error, message string) *Error {
	return &Error{kind: kind, cause: errors.Wrap(cause, message)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

// Unwrap allows errors.Is/errors.As (and github.com/pkg/errors.Cause) to
// reach the wrapped collaborator failure.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Cause implements the causer interface of github.com/pkg/errors, so that
// errors.Cause walks through an Error to the originating failure.
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() Kind {
	if e == nil {
		return KindResolverFailure
	}
	return e.kind
}

// KindOf extracts the taxonomy kind from an error returned by this
// package. It returns KindResolverFailure for any error not produced by
// this package, which is always a safe (if imprecise) classification
// since KindResolverFailure is defined to cover unclassified invariant
// violations.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindResolverFailure
}

// IsKind reports whether err was produced by this package with the given
// taxonomy kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

// ErrCancelled is returned by Resolve when the cancellation callback
// signals mid-walk. Its cause is a plain message rather than a wrapped
// collaborator failure, since cancellation is not a collaborator failure.
var ErrCancelled = &Error{kind: KindCancelled, cause: errors.New("resolution cancelled")}
