package wc

import "github.com/chrisyuyangshen/subversion/pkg/wc/store"

// walker drives the depth-first, synchronous comparison of a move source
// subtree against its move destination. It holds the pieces every
// recursive call needs so that walk itself can stay a pure function of
// its path arguments.
type walker struct {
	tx       store.Tx
	srcDepth int
	dstDepth int
	receiver *receiver
	cancel   CancellationFunc
}

// walk implements the C2 algorithm: load both sides at path, classify the
// difference, hand it to the receiver, then recurse into the lexical
// union of both sides' children. shadowed is true when the destination
// path lies inside a subtree that was itself moved away at an op-depth
// above dstDepth (children inherit a true value from their parent), which
// means the receiver must not overwrite working content. Other layers
// above dstDepth, such as local deletes or adds, do not set it; the
// receiver's add, alter-file and delete handlers detect those through the
// conflict engine's tree-conflict check instead.
func (w *walker) walk(srcPath, dstPath string, shadowed bool) error {
	if w.cancel != nil && w.cancel() {
		return ErrCancelled
	}

	src, err := w.loadInfo(srcPath, w.srcDepth)
	if err != nil {
		return err
	}
	dst, err := w.loadInfo(dstPath, w.dstDepth)
	if err != nil {
		return err
	}

	switch {
	case src.none() || (!dst.none() && src.Kind != dst.Kind):
		if err := w.receiver.delete(dstPath, dst.Kind, shadowed); err != nil {
			return err
		}
		if err := w.tx.DeleteWorkingOpDepth(dstPath, w.dstDepth); err != nil {
			return wrapError(KindResolverFailure, err, "retract destination layer")
		}
		// Nothing added in its place; no recursion into what no longer
		// exists on the source side.
		return nil
	case !src.none() && src.Kind != dst.Kind:
		if shadowed {
			if err := w.tx.ExtendParentDelete(dstPath, toStoreKind(src.Kind), w.dstDepth); err != nil {
				return wrapError(KindResolverFailure, err, "extend base-delete shadow")
			}
		}
		if src.Kind == KindDirectory {
			if err := w.receiver.addDirectory(dstPath, src, shadowed); err != nil {
				return err
			}
		} else {
			if err := w.receiver.addFile(dstPath, src, shadowed); err != nil {
				return err
			}
		}
	default:
		// kind_s != none && kind_s == kind_d: alter in place, only if a
		// difference actually exists.
		if src.Kind == KindDirectory {
			if err := w.receiver.alterDirectory(dstPath, src, dst, shadowed); err != nil {
				return err
			}
		} else {
			if err := w.receiver.alterFile(srcPath, dstPath, src, dst, shadowed); err != nil {
				return err
			}
		}
	}

	if src.Kind != KindDirectory && dst.Kind != KindDirectory {
		return nil
	}

	srcChildren, err := w.tx.GetChildren(srcPath, w.srcDepth)
	if err != nil {
		return wrapError(KindResolverFailure, err, "read source children")
	}
	dstChildren, err := w.tx.GetChildren(dstPath, w.dstDepth)
	if err != nil {
		return wrapError(KindResolverFailure, err, "read destination children")
	}

	for _, name := range nameUnion(toSet(srcChildren), toSet(dstChildren)) {
		childSrc := pathJoin(srcPath, name)
		childDst := pathJoin(dstPath, name)
		childShadowed := shadowed
		if !childShadowed {
			moved, ok, err := w.tx.OpDepthMovedTo(childDst, w.dstDepth)
			if err != nil {
				return wrapError(KindResolverFailure, err, "check shadow move")
			}
			childShadowed = ok && moved.SrcOpDepth > w.dstDepth
		}
		if err := w.walk(childSrc, childDst, childShadowed); err != nil {
			return err
		}
	}
	return nil
}

// loadInfo reads a layer and locally recovers ErrNotFound into a KindNone
// NodeInfo, per the error-handling design's only locally-recovered
// condition.
func (w *walker) loadInfo(path string, opDepth int) (NodeInfo, error) {
	info, err := w.tx.DepthGetInfo(path, opDepth)
	if err == store.ErrNotFound {
		return NodeInfo{}, nil
	} else if err != nil {
		return NodeInfo{}, wrapError(KindResolverFailure, err, "read layer")
	}
	return fromStoreInfo(info), nil
}

// fromStoreInfo converts a store.Info into the package's own NodeInfo
// representation.
func fromStoreInfo(info store.Info) NodeInfo {
	return NodeInfo{
		Status:       Presence(info.Status),
		Kind:         NodeKind(info.Kind),
		Revision:     info.Revision,
		ReposRelpath: info.ReposRelpath,
		Checksum:     info.Checksum,
		Props:        info.Props,
		ActualProps:  info.ActualProps,
	}
}

// toStoreKind converts a NodeKind into its store.Kind mirror.
func toStoreKind(kind NodeKind) store.Kind {
	return store.Kind(kind)
}
