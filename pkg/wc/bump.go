package wc

import "github.com/chrisyuyangshen/subversion/pkg/wc/store"

// UpdateDepth classifies how much of a subtree a bulk update claims to
// cover, mirroring the three shapes the bump engine must reason about.
type UpdateDepth int

const (
	// UpdateDepthEmpty covers only the root itself, no children.
	UpdateDepthEmpty UpdateDepth = iota
	// UpdateDepthFiles covers the root and its immediate file children.
	UpdateDepthFiles
	// UpdateDepthInfinity covers the entire subtree.
	UpdateDepthInfinity
)

// MoveCandidate describes a move under consideration for bumping.
type MoveCandidate struct {
	Src        string
	Dst        string
	SrcOpDepth int
}

// bumpEngine implements C6: fast-forwarding a move destination without
// driving the full walker, when the incoming update's depth suffices to
// cover the moved subtree and no intervening layer entangles the move.
type bumpEngine struct {
	tx          store.Tx
	dstDepthOf  func(dst string) int
	operation   Operation
	oldRevision int64
	newRevision int64
}

// Bump attempts to fast-forward every candidate move discovered under
// the updated root. It returns the paths that were bumped without a
// conflict (i.e. that the caller need not drive through the full walker)
// and leaves a move-edit tree conflict on any candidate it could not
// bump.
func (b *bumpEngine) Bump(candidates []MoveCandidate, depth UpdateDepth) ([]string, error) {
	var bumped []string
	for _, candidate := range candidates {
		ok, err := b.bumpOne(candidate, depth)
		if err != nil {
			return bumped, err
		}
		if ok {
			bumped = append(bumped, candidate.Dst)
		}
	}
	return bumped, nil
}

func (b *bumpEngine) bumpOne(candidate MoveCandidate, depth UpdateDepth) (bool, error) {
	entangled, err := b.entangled(candidate)
	if err != nil {
		return false, err
	}
	if entangled {
		return false, nil
	}

	if existing, err := b.tx.ReadConflict(candidate.Src); err != nil {
		return false, wrapError(KindResolverFailure, err, "check existing source conflict")
	} else if existing != nil {
		return false, nil
	}

	sufficient, err := b.depthSufficient(candidate, depth)
	if err != nil {
		return false, err
	}
	if !sufficient {
		return false, b.raiseMoveEdit(candidate)
	}

	dstDepth := candidate.SrcOpDepth
	if b.dstDepthOf != nil {
		dstDepth = b.dstDepthOf(candidate.Dst)
	}
	replacer := &layerReplacer{tx: b.tx, srcDepth: candidate.SrcOpDepth, dstDepth: dstDepth}
	if err := replacer.replace(candidate.Src, candidate.Dst); err != nil {
		return false, err
	}
	return true, nil
}

// entangled reports whether any layer exists strictly between the
// move's recorded op-depth and the path's other layers, which would
// mean the move cannot be safely bumped in isolation.
func (b *bumpEngine) entangled(candidate MoveCandidate) (bool, error) {
	_, opDepth, found, err := b.tx.ShadowLayer(candidate.Src, candidate.SrcOpDepth)
	if err != nil {
		return false, wrapError(KindResolverFailure, err, "check move entanglement")
	}
	return found && opDepth > candidate.SrcOpDepth, nil
}

// depthSufficient reports whether the update's claimed depth covers the
// moved subtree: empty suffices only for a childless source, files
// suffices only when the source has no directory children, infinity
// always suffices.
func (b *bumpEngine) depthSufficient(candidate MoveCandidate, depth UpdateDepth) (bool, error) {
	if depth == UpdateDepthInfinity {
		return true, nil
	}

	children, err := b.tx.GetChildren(candidate.Src, candidate.SrcOpDepth)
	if err != nil {
		return false, wrapError(KindResolverFailure, err, "read move source children")
	}
	if depth == UpdateDepthEmpty {
		return len(children) == 0, nil
	}

	// UpdateDepthFiles: sufficient only if every child is a file.
	for _, name := range children {
		info, err := b.tx.DepthGetInfo(pathJoin(candidate.Src, name), candidate.SrcOpDepth)
		if err != nil {
			return false, wrapError(KindResolverFailure, err, "read move source child")
		}
		if info.Kind == store.KindDirectory {
			return false, nil
		}
	}
	return true, nil
}

// raiseMoveEdit records a move-edit tree conflict on the move source
// when the update's depth does not suffice to bump it.
func (b *bumpEngine) raiseMoveEdit(candidate MoveCandidate) error {
	skeleton := &ConflictSkeleton{
		Path:         candidate.Src,
		Kind:         ConflictKindTree,
		Operation:    b.operation,
		OldRevision:  b.oldRevision,
		NewRevision:  b.newRevision,
		Reason:       ConflictReasonMoveEdit,
		Action:       ConflictActionEdit,
		SourceOpRoot: candidate.Src,
	}
	engine := &conflictEngine{tx: b.tx, operation: b.operation, oldRevision: b.oldRevision, newRevision: b.newRevision}
	return engine.persistConflict(skeleton)
}

// BreakMove clears move linkage between src and dst while leaving
// content intact: it retracts the source's base-delete shadow and
// leaves the destination's rows as an ordinary (non-moved) layer.
func BreakMove(tx store.Tx, src string, srcOpDepth int, dst string) error {
	if err := tx.RetractParentDelete(src, srcOpDepth); err != nil {
		return wrapError(KindResolverFailure, err, "retract move source shadow")
	}
	return nil
}
