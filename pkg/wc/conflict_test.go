package wc

import "testing"

func TestPropertyMergeUnchanged(t *testing.T) {
	base := map[string]string{"k": "1"}
	_, conflicted, state := propertyMerge(base, map[string]string{"k": "1"}, map[string]string{"k": "1"})
	if conflicted || state != MergeStateUnchanged {
		t.Fatalf("expected unchanged, got conflicted=%v state=%v", conflicted, state)
	}
}

func TestPropertyMergeChanged(t *testing.T) {
	base := map[string]string{"k": "1"}
	merged, conflicted, state := propertyMerge(base, map[string]string{"k": "1"}, map[string]string{"k": "2"})
	if conflicted || state != MergeStateChanged {
		t.Fatalf("expected changed, got conflicted=%v state=%v", conflicted, state)
	}
	if merged["k"] != "2" {
		t.Fatalf("expected merged value %q, got %q", "2", merged["k"])
	}
}

func TestPropertyMergeMerged(t *testing.T) {
	base := map[string]string{"k": "1", "other": "x"}
	actual := map[string]string{"k": "1", "other": "y"}
	incoming := map[string]string{"k": "2", "other": "x"}
	merged, conflicted, state := propertyMerge(base, actual, incoming)
	if conflicted || state != MergeStateMerged {
		t.Fatalf("expected merged, got conflicted=%v state=%v", conflicted, state)
	}
	if merged["k"] != "2" || merged["other"] != "y" {
		t.Fatalf("unexpected merge result: %v", merged)
	}
}

func TestPropertyMergeConflicted(t *testing.T) {
	base := map[string]string{"k": "1"}
	actual := map[string]string{"k": "local"}
	incoming := map[string]string{"k": "remote"}
	_, conflicted, state := propertyMerge(base, actual, incoming)
	if !conflicted || state != MergeStateConflicted {
		t.Fatalf("expected conflicted, got conflicted=%v state=%v", conflicted, state)
	}
}

func TestEncodeDecodeConflictSkeleton(t *testing.T) {
	original := &ConflictSkeleton{
		ID:          "cnfl_abc",
		Path:        "a/b",
		Kind:        ConflictKindTree,
		Operation:   OperationUpdate,
		OldRevision: 5,
		NewRevision: 6,
		Reason:      ConflictReasonMovedAway,
		Action:      ConflictActionAdd,
	}
	payload, err := encodeConflictSkeleton(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeConflictSkeleton(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !original.Equivalent(decoded) {
		t.Fatalf("round-tripped skeleton not equivalent: %+v vs %+v", original, decoded)
	}
}
