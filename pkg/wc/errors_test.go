package wc

import (
	"errors"
	"testing"
)

func TestKindOfUnclassifiedError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindResolverFailure {
		t.Fatalf("KindOf(unclassified) = %v, want %v", got, KindResolverFailure)
	}
}

func TestIsKind(t *testing.T) {
	err := newError(KindNotMovedAway, "no move recorded for %q", "a/b")
	if !IsKind(err, KindNotMovedAway) {
		t.Fatal("expected IsKind to match KindNotMovedAway")
	}
	if IsKind(err, KindNotLocked) {
		t.Fatal("expected IsKind not to match KindNotLocked")
	}
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("store failure")
	err := wrapError(KindResolverFailure, cause, "read layer")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to preserve cause for errors.Is")
	}
}

func TestCancelledErrorKind(t *testing.T) {
	if KindOf(ErrCancelled) != KindCancelled {
		t.Fatal("expected ErrCancelled to carry KindCancelled")
	}
}
