// Package wc implements the update-move conflict resolver: the subsystem
// that reconciles an incoming update or switch on a subtree that the user
// has locally moved away, so that the end state is as if the update had
// been applied before the move.
//
// The package is organized around six cooperating pieces, mirrored from
// the design of a layered working-copy node model: a node store
// collaborator (package store) supplies typed reads and writes against
// the persisted model, a tree Walker drives a synchronous depth-first
// comparison of the move source against the move destination, a Receiver
// applies the resulting edits to the destination, a ConflictEngine
// detects and records tree conflicts, a LayerReplacer rewrites the
// destination's op-depth layer to mirror the source, and a BumpEngine
// fast-forwards moves whose source the incoming update covers at
// sufficient depth, without driving the full walk.
package wc

import "sort"

// NodeKind identifies the type of content a node represents at a given
// layer. KindNone is not a real content kind; it is the zero value used
// to represent the absence of a layer at a path, so that comparisons
// between the source and destination sides of a walk never need a
// separate "found" boolean.
type NodeKind int

const (
	// KindNone indicates that no layer exists at the requested op-depth.
	KindNone NodeKind = iota
	// KindFile indicates a regular file.
	KindFile
	// KindDirectory indicates a directory.
	KindDirectory
	// KindSymlink indicates a symbolic link.
	KindSymlink
)

// String returns a human-readable representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Presence records the fine-grained status of a node at a particular
// layer, beyond its content kind.
type Presence int

const (
	// PresenceNormal indicates an ordinary, fully-present node.
	PresenceNormal Presence = iota
	// PresenceNotPresent indicates that the layer carries no row for
	// this path at all.
	PresenceNotPresent
	// PresenceBaseDeleted records that a lower layer is shadowed by a
	// deletion at this layer; it carries no content of its own.
	PresenceBaseDeleted
	// PresenceExcluded indicates a node deliberately excluded from
	// synchronization at this layer.
	PresenceExcluded
	// PresenceIncomplete indicates a node whose children have not been
	// fully populated at this layer.
	PresenceIncomplete
	// PresenceDeleted indicates a node marked for deletion at this
	// layer but not yet retracted.
	PresenceDeleted
)

// Operation identifies whether a conflict arose from an update or a
// switch.
type Operation int

const (
	// OperationUpdate indicates the conflict arose from an update.
	OperationUpdate Operation = iota
	// OperationSwitch indicates the conflict arose from a switch.
	OperationSwitch
)

// String returns a human-readable representation of the operation.
func (o Operation) String() string {
	if o == OperationSwitch {
		return "switch"
	}
	return "update"
}

// ConflictKind identifies the category of a conflict.
type ConflictKind int

const (
	// ConflictKindTree indicates a structural conflict between a local
	// operation and an incoming change at the same path.
	ConflictKindTree ConflictKind = iota
	// ConflictKindText indicates a conflicting three-way merge of file
	// content.
	ConflictKindText
	// ConflictKindProperty indicates a conflicting three-way merge of
	// node properties.
	ConflictKindProperty
)

// ConflictReason identifies why a tree conflict was raised.
type ConflictReason int

const (
	// ConflictReasonUnversioned indicates that an incoming add was
	// obstructed by unversioned on-disk content.
	ConflictReasonUnversioned ConflictReason = iota
	// ConflictReasonEdited indicates that the destination carries local
	// modifications that an incoming delete would discard.
	ConflictReasonEdited
	// ConflictReasonDeleted indicates that the destination's ancestor
	// was itself deleted locally.
	ConflictReasonDeleted
	// ConflictReasonMovedAway indicates that the anchor of the conflict
	// was itself the source of a local move.
	ConflictReasonMovedAway
	// ConflictReasonMoveEdit indicates that the bump engine could not
	// fast-forward a move because the update did not cover the moved
	// subtree at sufficient depth.
	ConflictReasonMoveEdit
)

// ConflictAction identifies the kind of incoming change that triggered a
// tree conflict check.
type ConflictAction int

const (
	// ConflictActionAdd indicates the triggering change was an add.
	ConflictActionAdd ConflictAction = iota
	// ConflictActionDelete indicates the triggering change was a
	// delete.
	ConflictActionDelete
	// ConflictActionEdit indicates the triggering change was an
	// alteration (property or content) of existing content.
	ConflictActionEdit
)

// NodeInfo is the result of a layer read: depth_get_info. A NodeInfo with
// Kind == KindNone represents the absence of a layer at the requested
// op-depth, which is the local recovery the walker performs for a "not
// found" row per the error-handling design.
type NodeInfo struct {
	// Status is the presence of the node at this layer.
	Status Presence
	// Kind is the content kind of the node at this layer.
	Kind NodeKind
	// Revision is the repository revision associated with this layer,
	// when applicable.
	Revision int64
	// ReposRelpath is the repository-relative path this layer
	// corresponds to, which may differ from the working-copy relpath
	// under a move or copy.
	ReposRelpath string
	// Checksum identifies the pristine content for a file node.
	Checksum []byte
	// Props holds the node's versioned (base) properties.
	Props map[string]string
	// ActualProps holds the actual-table override written by a prior
	// set_props call, distinct from Props. It is nil when no override
	// exists, in which case the actual value equals Props.
	ActualProps map[string]string
}

// none reports whether the info represents the absence of content.
func (n NodeInfo) none() bool {
	return n.Kind == KindNone
}

// MoveRecord describes a single move: an op-root pair where the
// destination carries a fresh op-depth equal to its own path depth and
// the source carries a base-delete layer at the same op-depth.
type MoveRecord struct {
	// SrcRelpath is the relative path of the move source.
	SrcRelpath string
	// DstRelpath is the relative path of the move destination.
	DstRelpath string
	// SrcOpDepth is the op-depth of the source's base-delete layer,
	// which must equal the op-depth of the destination's op-root.
	SrcOpDepth int
}

// ConflictSkeleton is a structured, persistable description of a pending
// conflict.
type ConflictSkeleton struct {
	// ID is a collision-resistant identifier for the skeleton.
	ID string
	// Path is the node this conflict is recorded against.
	Path string
	// Kind classifies the conflict.
	Kind ConflictKind
	// Operation is the operation that produced the conflict.
	Operation Operation
	// OldRevision and NewRevision bound the repository change that
	// produced the conflict.
	OldRevision int64
	NewRevision int64
	// Reason explains why the conflict was raised. It is only
	// meaningful for tree conflicts.
	Reason ConflictReason
	// Action is the incoming change that triggered the conflict. It is
	// only meaningful for tree conflicts.
	Action ConflictAction
	// SourceOpRoot records the move source that gave rise to this
	// conflict, when the reason is ConflictReasonMovedAway or
	// ConflictReasonMoveEdit.
	SourceOpRoot string
}

// Equivalent reports whether two conflict skeletons describe the same
// logical conflict, ignoring their identifiers and their old/new
// revisions. mark_conflict is
// idempotent against an equivalent skeleton and fails against an
// incompatible one.
func (c *ConflictSkeleton) Equivalent(other *ConflictSkeleton) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Path == other.Path &&
		c.Kind == other.Kind &&
		c.Operation == other.Operation &&
		c.Reason == other.Reason &&
		c.Action == other.Action &&
		c.SourceOpRoot == other.SourceOpRoot
}

// WorkItemKind identifies the deferred filesystem action a work item
// represents.
type WorkItemKind int

const (
	// WorkItemInstallFile installs file content, optionally from a
	// pristine reference.
	WorkItemInstallFile WorkItemKind = iota
	// WorkItemRemoveFile removes a file.
	WorkItemRemoveFile
	// WorkItemInstallDirectory installs a directory.
	WorkItemInstallDirectory
	// WorkItemRemoveDirectory removes a directory.
	WorkItemRemoveDirectory
	// WorkItemWriteMarker materializes conflict marker files.
	WorkItemWriteMarker
	// WorkItemInstallMergeResult installs the output of a three-way
	// content merge, as produced by the external merger.
	WorkItemInstallMergeResult
)

// WorkItem is a deferred filesystem action, ordered and executed by the
// external work-queue executor only after the enclosing transaction
// commits.
type WorkItem struct {
	// ID is a collision-resistant identifier for the item.
	ID string
	// Kind identifies the action to perform.
	Kind WorkItemKind
	// Path is the node the action applies to.
	Path string
	// FromPristine identifies the pristine content to materialize, for
	// WorkItemInstallFile and WorkItemInstallMergeResult.
	FromPristine []byte
	// RecordInfo indicates whether the executor should record
	// post-install metadata (size, modification time) back into the
	// node store once the action completes.
	RecordInfo bool
	// MarkerText is the content to write for WorkItemWriteMarker.
	MarkerText string
}

// NotificationAction classifies the kind of event a notification record
// reports.
type NotificationAction int

const (
	// NotificationUpdateAdd reports a new node installed by the update.
	NotificationUpdateAdd NotificationAction = iota
	// NotificationUpdateUpdate reports an altered node.
	NotificationUpdateUpdate
	// NotificationUpdateDelete reports a removed node.
	NotificationUpdateDelete
	// NotificationTreeConflict reports a node at which a tree conflict
	// was raised in place of applying the incoming change.
	NotificationTreeConflict
)

// MergeState classifies the outcome of merging one axis (content or
// properties) of an alter_file edit.
type MergeState int

const (
	// MergeStateUnchanged indicates no difference was detected.
	MergeStateUnchanged MergeState = iota
	// MergeStateChanged indicates the incoming value was installed
	// without any local modification to reconcile.
	MergeStateChanged
	// MergeStateMerged indicates a local modification was reconciled
	// with the incoming value without conflict.
	MergeStateMerged
	// MergeStateConflicted indicates the merge could not be resolved
	// automatically.
	MergeStateConflicted
)

// NotificationRecord is a spooled description of a single affected path,
// emitted to the notification sink once per record, in walk order, after
// the enclosing transaction commits.
type NotificationRecord struct {
	// ID is a collision-resistant identifier for the record.
	ID string
	// Path is the affected node.
	Path string
	// Action classifies the event.
	Action NotificationAction
	// Kind is the node kind involved.
	Kind NodeKind
	// ContentState and PropState describe the outcome of an
	// alter_file edit; they are ContentState/PropState-Unchanged for
	// other actions.
	ContentState MergeState
	PropState    MergeState
	// OldRevision and NewRevision are the repository versions spanned
	// by the update or switch.
	OldRevision int64
	NewRevision int64
}

// nameUnion returns the sorted union of keys across any number of
// per-path child-name sets, so that a merge-walk over two trees visits
// names in a single lexicographic pass regardless of which side (or
// neither) introduced a given name.
func nameUnion(sets ...map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for name := range set {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toSet converts a sorted slice of base names (as returned by
// store.Tx.GetChildren) into a set suitable for nameUnion.
func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
