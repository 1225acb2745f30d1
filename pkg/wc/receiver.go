package wc

import (
	"bytes"

	"github.com/chrisyuyangshen/subversion/pkg/identifier"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
)

// receiver implements C3: applying the edit events the walker emits to
// the destination, raising conflicts through the engine when a change
// cannot simply be installed.
type receiver struct {
	tx       store.Tx
	dstDepth int
	engine   *conflictEngine
	merger   Merger
	pristine PristineStore
	working  WorkingStore
	oldRev   int64
	newRev   int64

	// spooled mirrors, in walk order, every notification handed to
	// tx.NotifyAdd. Resolve flushes it to the NotificationSink only
	// after the enclosing transaction commits, so that an aborted
	// resolution never reaches the sink (invariant 5).
	spooled []NotificationRecord

	// spooledItems mirrors, in walk order, every work item handed to
	// tx.WQAdd. Resolve hands it to the WorkQueueExecutor only after
	// commit, for the same reason.
	spooledItems []WorkItem
}

// addDirectory and addFile share the same shape: check for a tree
// conflict or shadow, check for an unversioned obstruction, then enqueue
// the install work item.
func (r *receiver) addDirectory(path string, src NodeInfo, shadowed bool) error {
	return r.add(path, src, KindDirectory, shadowed)
}

func (r *receiver) addFile(path string, src NodeInfo, shadowed bool) error {
	return r.add(path, src, KindFile, shadowed)
}

func (r *receiver) add(path string, src NodeInfo, kind NodeKind, shadowed bool) error {
	conflicted, err := r.engine.checkTreeConflict(path, KindNone, ConflictActionAdd)
	if err != nil {
		return err
	}
	if conflicted || shadowed {
		return nil
	}

	if unversionedObstruction(path) {
		if err := r.engine.markTreeConflict(path, ConflictReasonUnversioned, ConflictActionAdd, ""); err != nil {
			return err
		}
		return r.notifyRecord(path, NotificationTreeConflict, kind, MergeStateUnchanged, MergeStateUnchanged)
	}

	id, err := identifier.New(identifier.PrefixWorkItem)
	if err != nil {
		return wrapError(KindResolverFailure, err, "generate work item id")
	}
	item := WorkItem{ID: id, Path: path, RecordInfo: true}
	if kind == KindDirectory {
		item.Kind = WorkItemInstallDirectory
	} else {
		item.Kind = WorkItemInstallFile
		item.FromPristine = src.Checksum
	}
	if err := r.spoolWorkItem(item); err != nil {
		return err
	}
	return r.notifyRecord(path, NotificationUpdateAdd, kind, MergeStateUnchanged, MergeStateUnchanged)
}

// alterDirectory updates only the working properties; child differences
// are handled entirely by the walker's recursion.
func (r *receiver) alterDirectory(path string, src, dst NodeInfo, shadowed bool) error {
	if shadowed {
		return nil
	}
	if propsEqual(src.Props, dst.Props) {
		return nil
	}
	if err := r.tx.SetProps(path, src.Props); err != nil {
		return wrapError(KindResolverFailure, err, "set directory props")
	}
	return nil
}

// alterFile runs the property merge and, if the checksum differs,
// either a plain install or the external merger, per §4.3.
func (r *receiver) alterFile(srcPath, dstPath string, src, dst NodeInfo, shadowed bool) error {
	if shadowed {
		return nil
	}
	if propsEqual(src.Props, dst.Props) && bytes.Equal(src.Checksum, dst.Checksum) {
		return nil
	}

	conflicted, err := r.engine.checkTreeConflict(dstPath, dst.Kind, ConflictActionEdit)
	if err != nil {
		return err
	}
	if conflicted {
		return nil
	}

	propState := MergeStateUnchanged
	var propConflict bool
	if !propsEqual(src.Props, dst.Props) {
		// dst.Props is the base (last-known versioned) value;
		// dst.ActualProps is the actual-table override a prior SetProps call left in
		// place (see store.Tx.SetProps), or dst.Props itself when no
		// override exists — only then do base and actual legitimately
		// coincide.
		actual := dst.ActualProps
		if actual == nil {
			actual = dst.Props
		}
		merged, conflict, state := propertyMerge(dst.Props, actual, src.Props)
		propState = state
		propConflict = conflict
		if conflict {
			if err := r.engine.markNonTreeConflict(ConflictKindProperty, dstPath); err != nil {
				return err
			}
		} else if propsEqual(merged, src.Props) {
			if err := r.tx.SetProps(dstPath, nil); err != nil {
				return wrapError(KindResolverFailure, err, "clear props")
			}
		} else {
			if err := r.tx.SetProps(dstPath, merged); err != nil {
				return wrapError(KindResolverFailure, err, "set merged props")
			}
		}
	}

	contentState := MergeStateUnchanged
	var textConflict bool
	if !bytes.Equal(src.Checksum, dst.Checksum) {
		// Without a merger, pristine store, and working store all
		// configured, the destination is treated as unmodified and the
		// incoming pristine is installed directly. Wiring all three
		// collaborators enables the full three-way text merge below.
		id, err := identifier.New(identifier.PrefixWorkItem)
		if err != nil {
			return wrapError(KindResolverFailure, err, "generate work item id")
		}
		if r.merger == nil || r.pristine == nil || r.working == nil {
			item := WorkItem{ID: id, Kind: WorkItemInstallFile, Path: dstPath, FromPristine: src.Checksum, RecordInfo: true}
			if err := r.spoolWorkItem(item); err != nil {
				return err
			}
			contentState = MergeStateChanged
		} else {
			oldPristine, err := r.pristine.Open(dst.Checksum)
			if err != nil {
				return wrapError(KindResolverFailure, err, "open old pristine")
			}
			defer oldPristine.Close()
			newPristine, err := r.pristine.Open(src.Checksum)
			if err != nil {
				return wrapError(KindResolverFailure, err, "open new pristine")
			}
			defer newPristine.Close()
			working, err := r.working.Open(dstPath)
			if err != nil {
				return wrapError(KindResolverFailure, err, "open working content")
			}
			defer working.Close()

			var out bytes.Buffer
			state, err := r.merger.Merge(&out, oldPristine, working, newPristine)
			if err != nil {
				return wrapError(KindResolverFailure, err, "run merger")
			}
			merged, err := r.pristine.Put(&out)
			if err != nil {
				return wrapError(KindResolverFailure, err, "store merge result")
			}
			item := WorkItem{ID: id, Kind: WorkItemInstallMergeResult, Path: dstPath, FromPristine: merged, RecordInfo: true}
			if err := r.spoolWorkItem(item); err != nil {
				return err
			}
			contentState = state
			textConflict = state == MergeStateConflicted
		}
	}

	if textConflict || propConflict {
		markerID, err := identifier.New(identifier.PrefixWorkItem)
		if err != nil {
			return wrapError(KindResolverFailure, err, "generate marker item id")
		}
		marker := WorkItem{ID: markerID, Kind: WorkItemWriteMarker, Path: dstPath, MarkerText: conflictMarkerText(dstPath, textConflict, propConflict)}
		if err := r.spoolWorkItem(marker); err != nil {
			return err
		}
	}

	return r.notifyRecord(dstPath, NotificationUpdateUpdate, KindFile, contentState, propState)
}

// delete implements the receiver's delete handling, including the
// edited/deleted local-modification branches of §4.3.
func (r *receiver) delete(path string, kind NodeKind, shadowed bool) error {
	conflicted, err := r.engine.checkTreeConflict(path, kind, ConflictActionDelete)
	if err != nil {
		return err
	}
	if conflicted || shadowed {
		return nil
	}

	modified, allDeletes, err := r.localModifications(path)
	if err != nil {
		return err
	}

	if !modified {
		if err := r.removeSubtree(path); err != nil {
			return err
		}
		return r.notifyRecord(path, NotificationUpdateDelete, kind, MergeStateUnchanged, MergeStateUnchanged)
	}

	if !allDeletes {
		if err := r.tx.UpdateOpDepthRecursive(path, r.dstDepth, r.dstDepth-1); err != nil {
			return wrapError(KindResolverFailure, err, "reparent modified layer")
		}
		return r.engine.markTreeConflict(path, ConflictReasonEdited, ConflictActionDelete, "")
	}

	if err := r.tx.DeleteWorkingOpDepth(path, r.dstDepth); err != nil {
		return wrapError(KindResolverFailure, err, "delete working rows")
	}
	if err := r.removeSubtree(path); err != nil {
		return err
	}
	return r.engine.markTreeConflict(path, ConflictReasonDeleted, ConflictActionDelete, "")
}

// localModifications reports whether path's destination subtree carries
// local modifications above dstDepth, and if so whether every one of
// them is itself a deletion. This reference implementation consults the
// store's shadow primitive: any layer strictly above dstDepth counts as
// a modification, and a base-deleted presence at that layer counts as a
// deletion.
func (r *receiver) localModifications(path string) (modified bool, allDeletes bool, err error) {
	_, opDepth, found, err := r.tx.ShadowLayer(path, r.dstDepth)
	if err != nil {
		return false, false, wrapError(KindResolverFailure, err, "check local modifications")
	}
	if !found {
		return false, false, nil
	}
	info, err := r.tx.DepthGetInfo(path, opDepth)
	if err == store.ErrNotFound {
		return true, true, nil
	} else if err != nil {
		return false, false, wrapError(KindResolverFailure, err, "read modified layer")
	}
	return true, Presence(info.Status) == PresenceBaseDeleted, nil
}

// removeSubtree enqueues work items to remove every existing child of
// path and then path itself.
func (r *receiver) removeSubtree(path string) error {
	children, err := r.tx.GetChildren(path, r.dstDepth)
	if err != nil {
		return wrapError(KindResolverFailure, err, "read children for removal")
	}
	for _, name := range children {
		if err := r.removeSubtree(pathJoin(path, name)); err != nil {
			return err
		}
	}
	id, err := identifier.New(identifier.PrefixWorkItem)
	if err != nil {
		return wrapError(KindResolverFailure, err, "generate remove item id")
	}
	info, err := r.tx.DepthGetInfo(path, r.dstDepth)
	kind := store.KindFile
	if err == nil {
		kind = info.Kind
	}
	item := WorkItem{ID: id, Path: path}
	if kind == store.KindDirectory {
		item.Kind = WorkItemRemoveDirectory
	} else {
		item.Kind = WorkItemRemoveFile
	}
	return r.spoolWorkItem(item)
}

func (r *receiver) spoolWorkItem(item WorkItem) error {
	payload, err := encodeWorkItem(&item)
	if err != nil {
		return wrapError(KindResolverFailure, err, "encode work item")
	}
	if err := r.tx.WQAdd(store.WorkItemRow{ID: item.ID, Payload: payload}); err != nil {
		return wrapError(KindResolverFailure, err, "spool work item")
	}
	r.spooledItems = append(r.spooledItems, item)
	return nil
}

func (r *receiver) notifyRecord(path string, action NotificationAction, kind NodeKind, contentState, propState MergeState) error {
	id, err := identifier.New(identifier.PrefixNotification)
	if err != nil {
		return wrapError(KindResolverFailure, err, "generate notification id")
	}
	record := NotificationRecord{
		ID:           id,
		Path:         path,
		Action:       action,
		Kind:         kind,
		ContentState: contentState,
		PropState:    propState,
		OldRevision:  r.oldRev,
		NewRevision:  r.newRev,
	}
	payload, err := encodeNotificationRecord(&record)
	if err != nil {
		return wrapError(KindResolverFailure, err, "encode notification")
	}
	if err := r.tx.NotifyAdd(store.NotificationRow{ID: id, Payload: payload}); err != nil {
		return wrapError(KindResolverFailure, err, "spool notification")
	}
	r.spooled = append(r.spooled, record)
	return nil
}

// unversionedObstruction reports whether an on-disk obstruction exists
// at path. Filesystem inspection belongs to the work-queue executor in
// the full system; the reference resolver exposes this as a hook so
// callers (and tests) can simulate the check deterministically.
var unversionedObstructionHook func(path string) bool

func unversionedObstruction(path string) bool {
	if unversionedObstructionHook == nil {
		return false
	}
	return unversionedObstructionHook(path)
}

func conflictMarkerText(path string, text, prop bool) string {
	switch {
	case text && prop:
		return "conflict: text and properties at " + path
	case text:
		return "conflict: text at " + path
	default:
		return "conflict: properties at " + path
	}
}
