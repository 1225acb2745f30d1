package wc

import "github.com/chrisyuyangshen/subversion/pkg/wc/store"

// layerReplacer implements C5: after the walk completes, it rewrites the
// destination's single op-depth layer to exactly mirror the source's
// layer, so that invariant 6 holds regardless of what the walk itself
// touched (the walk only ever installs work items and conflicts; it
// never itself copies rows).
type layerReplacer struct {
	tx       store.Tx
	srcDepth int
	dstDepth int
}

// replace copies every row of the source layer rooted at srcPath into
// the destination layer at the mapped path under dstPath, extending
// base-delete shadows as needed so that nothing above the destination
// depth is left uncovered.
func (l *layerReplacer) replace(srcPath, dstPath string) error {
	info, err := l.tx.DepthGetInfo(srcPath, l.srcDepth)
	if err == store.ErrNotFound {
		return nil
	} else if err != nil {
		return wrapError(KindResolverFailure, err, "read source layer for replacement")
	}

	parentDst := pathDir(dstPath)
	if err := l.tx.CopyNodeMove(srcPath, l.srcDepth, dstPath, l.dstDepth, parentDst); err != nil {
		return wrapError(KindResolverFailure, err, "copy layer row")
	}

	if info.Kind != store.KindDirectory {
		return nil
	}

	children, err := l.tx.GetChildren(srcPath, l.srcDepth)
	if err != nil {
		return wrapError(KindResolverFailure, err, "read source children for replacement")
	}
	for _, name := range children {
		childSrc := pathJoin(srcPath, name)
		childDst := pathJoin(dstPath, name)
		childInfo, err := l.tx.DepthGetInfo(childSrc, l.srcDepth)
		if err != nil && err != store.ErrNotFound {
			return wrapError(KindResolverFailure, err, "read child layer for shadow extension")
		}
		if err := l.replace(childSrc, childDst); err != nil {
			return err
		}
		if err := l.tx.ExtendParentDelete(childDst, childInfo.Kind, l.dstDepth); err != nil {
			return wrapError(KindResolverFailure, err, "extend shadow under replaced layer")
		}
	}
	return nil
}
