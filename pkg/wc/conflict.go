package wc

import (
	"github.com/chrisyuyangshen/subversion/pkg/identifier"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
)

// conflictEngine implements C4: detecting, classifying, and recording
// tree conflicts; the three-way property merge used by alter_file edits
// (propertyMerge) lives alongside it. A single engine is shared by every receiver call
// within one resolution, because it remembers the most recently raised
// conflict root so that nested paths under it are suppressed.
type conflictEngine struct {
	tx          store.Tx
	dstDepth    int
	operation   Operation
	oldRevision int64
	newRevision int64

	// root is the path of the most recently raised tree conflict, or ""
	// if none has been raised yet on this branch of the walk.
	root    string
	hasRoot bool
}

// checkTreeConflict implements check_tree_conflict. It returns true if
// relpath is (or falls under) a tree conflict, raising a fresh one when
// warranted.
func (e *conflictEngine) checkTreeConflict(relpath string, oldKind NodeKind, action ConflictAction) (bool, error) {
	if e.hasRoot && pathIsOrUnder(relpath, e.root) {
		return true, nil
	}

	anchor, opDepth, found, err := e.tx.ShadowLayer(relpath, e.dstDepth)
	if err != nil {
		return false, wrapError(KindResolverFailure, err, "locate conflict anchor")
	}
	if !found {
		return false, nil
	}

	reason := ConflictReasonDeleted
	var sourceOpRoot string
	if moved, ok, err := e.tx.OpDepthMovedTo(anchor, e.dstDepth); err != nil {
		return false, wrapError(KindResolverFailure, err, "check anchor move")
	} else if ok && moved.SrcOpDepth == opDepth {
		reason = ConflictReasonMovedAway
		sourceOpRoot = moved.SrcOpRoot
	}

	if err := e.markTreeConflict(anchor, reason, action, sourceOpRoot); err != nil {
		return false, err
	}
	return true, nil
}

// markTreeConflict implements mark_tree_conflict: it composes a tree
// conflict skeleton at anchor and persists it via the store, enforcing
// invariant 4 (at most one tree conflict per node).
func (e *conflictEngine) markTreeConflict(anchor string, reason ConflictReason, action ConflictAction, sourceOpRoot string) error {
	skeleton := &ConflictSkeleton{
		Path:         anchor,
		Kind:         ConflictKindTree,
		Operation:    e.operation,
		OldRevision:  e.oldRevision,
		NewRevision:  e.newRevision,
		Reason:       reason,
		Action:       action,
		SourceOpRoot: sourceOpRoot,
	}
	if err := e.persistConflict(skeleton); err != nil {
		return err
	}
	e.root = anchor
	e.hasRoot = true
	return nil
}

// persistConflict reads any existing conflict at skeleton.Path and
// either leaves an equivalent one alone, writes a fresh one, or fails
// with ObstructedUpdate for an incompatible one.
func (e *conflictEngine) persistConflict(skeleton *ConflictSkeleton) error {
	existing, err := e.tx.ReadConflict(skeleton.Path)
	if err != nil {
		return wrapError(KindResolverFailure, err, "read existing conflict")
	}
	if existing != nil {
		decoded, err := decodeConflictSkeleton(existing.Payload)
		if err != nil {
			return wrapError(KindResolverFailure, err, "decode existing conflict")
		}
		if decoded.Equivalent(skeleton) {
			return nil
		}
		return newError(KindObstructedUpdate, "incompatible tree conflict already recorded at %q", skeleton.Path)
	}

	id, err := identifier.New(identifier.PrefixConflict)
	if err != nil {
		return wrapError(KindResolverFailure, err, "generate conflict id")
	}
	skeleton.ID = id

	payload, err := encodeConflictSkeleton(skeleton)
	if err != nil {
		return wrapError(KindResolverFailure, err, "encode conflict")
	}
	if err := e.tx.MarkConflict(store.ConflictRow{Path: skeleton.Path, Payload: payload}); err != nil {
		return wrapError(KindResolverFailure, err, "persist conflict")
	}
	return nil
}

// markNonTreeConflict persists a text or property conflict skeleton at
// path. Unlike tree conflicts, these never set the engine's remembered
// conflict root: a content conflict doesn't suppress sibling or child
// processing the way a structural one does.
func (e *conflictEngine) markNonTreeConflict(kind ConflictKind, path string) error {
	skeleton := &ConflictSkeleton{
		Path:        path,
		Kind:        kind,
		Operation:   e.operation,
		OldRevision: e.oldRevision,
		NewRevision: e.newRevision,
	}
	return e.persistConflict(skeleton)
}

// propertyMerge performs the three-way property merge described in
// §4.4: old.props is base and merge-left, current actual props are
// merge-right, new.props is the other side. It returns the merged
// property set, whether a conflict resulted, and the merge state.
func propertyMerge(base, actual, incoming map[string]string) (merged map[string]string, conflicted bool, state MergeState) {
	if propsEqual(base, incoming) {
		return actual, false, MergeStateUnchanged
	}
	if propsEqual(actual, base) {
		return incoming, false, MergeStateChanged
	}
	if propsEqual(actual, incoming) {
		return actual, false, MergeStateUnchanged
	}

	merged = make(map[string]string)
	conflictKeys := make(map[string]bool)
	for key := range unionKeys(base, actual, incoming) {
		b, hb := base[key]
		a, ha := actual[key]
		n, hn := incoming[key]
		switch {
		case hb == hn && b == n:
			// Base and incoming agree: keep whatever actual has (or
			// doesn't have).
			if ha {
				merged[key] = a
			}
		case hb == ha && b == a:
			// Base and actual agree: adopt incoming.
			if hn {
				merged[key] = n
			}
		case ha == hn && a == n:
			merged[key] = a
		default:
			conflictKeys[key] = true
			if ha {
				merged[key] = a
			}
		}
	}
	if len(conflictKeys) > 0 {
		return merged, true, MergeStateConflicted
	}
	return merged, false, MergeStateMerged
}

func propsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func unionKeys(maps ...map[string]string) map[string]struct{} {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	return seen
}
