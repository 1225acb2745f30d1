package wc

import (
	"reflect"
	"testing"
)

func TestNameUnion(t *testing.T) {
	left := toSet([]string{"a", "c"})
	right := toSet([]string{"b", "c"})
	got := nameUnion(left, right)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("nameUnion = %v, want %v", got, want)
	}
}

func TestToSetEmpty(t *testing.T) {
	if toSet(nil) != nil {
		t.Fatal("toSet(nil) should return nil")
	}
}

func TestConflictSkeletonEquivalent(t *testing.T) {
	a := &ConflictSkeleton{Path: "a/b", Kind: ConflictKindTree, Reason: ConflictReasonEdited, Action: ConflictActionDelete}
	b := &ConflictSkeleton{ID: "cnfl_different", Path: "a/b", Kind: ConflictKindTree, Reason: ConflictReasonEdited, Action: ConflictActionDelete}
	if !a.Equivalent(b) {
		t.Fatal("skeletons differing only by ID should be equivalent")
	}

	c := &ConflictSkeleton{Path: "a/b", Kind: ConflictKindTree, Reason: ConflictReasonDeleted, Action: ConflictActionDelete}
	if a.Equivalent(c) {
		t.Fatal("skeletons with differing reasons should not be equivalent")
	}
}

func TestNodeInfoNone(t *testing.T) {
	if !(NodeInfo{}).none() {
		t.Fatal("zero-value NodeInfo should report none")
	}
	if (NodeInfo{Kind: KindFile}).none() {
		t.Fatal("NodeInfo with a kind should not report none")
	}
}
