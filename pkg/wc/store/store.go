// Package store defines the Node Store API (C1): the narrow typed
// surface the resolver uses to read and write the persisted, layered
// working-copy node model. The relational store backing this interface
// is an external collaborator — this package owns only the contract, not
// an implementation; see the memstore subpackage for a reference
// implementation suitable for tests and the CLI harness.
package store

import "errors"

// ErrNotFound is returned by DepthGetInfo when no row exists at the
// requested path and op-depth. Callers in package wc translate this
// locally into a KindNone NodeInfo; it is the only condition the resolver
// recovers from rather than propagating.
var ErrNotFound = errors.New("node not found")

// ErrNotLocked is returned by a mutating Tx method when LockOpRoots has
// not yet succeeded for this transaction, per invariant 1.
var ErrNotLocked = errors.New("write lock not verified")

// Kind mirrors wc.NodeKind without importing the wc package, so that
// store has no dependency on the resolver that consumes it.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindDirectory
	KindSymlink
)

// Presence mirrors wc.Presence.
type Presence int

const (
	PresenceNormal Presence = iota
	PresenceNotPresent
	PresenceBaseDeleted
	PresenceExcluded
	PresenceIncomplete
	PresenceDeleted
)

// Info is the result of a layer read.
type Info struct {
	Status       Presence
	Kind         Kind
	Revision     int64
	ReposRelpath string
	Checksum     []byte
	Props        map[string]string
	// ActualProps holds the "actual" table override written by a prior
	// SetProps call, distinct from Props (the node's own versioned
	// properties). A nil ActualProps means no override exists, in which
	// case Props also stands in for the actual value.
	ActualProps map[string]string
}

// MoveTarget is the result of op_depth_moved_to: the move whose source
// covers the queried path at some op-depth strictly greater than the
// argument.
type MoveTarget struct {
	DstRelpath  string
	SrcRoot     string
	SrcOpRoot   string
	SrcOpDepth  int
}

// ConflictRow is the persisted form of a conflict skeleton, keyed by the
// path it's recorded against. The store treats its payload as opaque
// bytes; the resolver (package wc) is responsible for encoding and
// decoding it. This keeps the store interface free of any dependency on
// the resolver's conflict model.
type ConflictRow struct {
	Path    string
	Payload []byte
}

// WorkItemRow is the persisted form of a work queue item. Like
// ConflictRow, the payload is opaque to the store.
type WorkItemRow struct {
	ID      string
	Payload []byte
}

// NotificationRow is the persisted form of a notification record.
type NotificationRow struct {
	ID      string
	Payload []byte
}

// Tx is a single outer transaction over the node store. Every mutating
// method requires a verified write-lock on the relevant op-root
// (invariant 1); LockOpRoots must be called, and must succeed, before any
// mutating method is invoked on a given Tx. Reads such as ReadConflict may
// run before it.
//
// A Tx has no Commit/Rollback of its own: the caller that opened it
// (package wc's Resolve/Bump) owns the transaction boundary and invokes
// Backend.Commit or Backend.Rollback on the Backend that produced this
// Tx. This mirrors the relational store's real transaction semantics
// (spec.md §5: "the notification spool and work-queue spool are
// process-local tables inside the same transaction as the node writes").
type Tx interface {
	// LockOpRoots verifies (and, for an exclusive in-process
	// implementation, acquires) a write-lock on both the move source
	// and move destination op-roots. It must be called, and succeed,
	// before any mutating method below is invoked.
	LockOpRoots(srcOpRoot, dstOpRoot string) error

	// Unlock releases every op-root write-lock acquired across one or
	// more LockOpRoots calls on this transaction. It is always safe to
	// call, including when LockOpRoots was never called or failed
	// partway through; the caller that opened the transaction is
	// responsible for calling it exactly once, on every return path,
	// so that a second resolution against the same op-root never
	// deadlocks waiting on a lock this transaction forgot to release.
	Unlock()

	// DepthGetInfo reads the layer at path and opDepth. It returns
	// ErrNotFound if no row exists at that layer.
	DepthGetInfo(path string, opDepth int) (Info, error)

	// GetChildren returns the sorted base names of the children of path
	// at the given op-depth.
	GetChildren(path string, opDepth int) ([]string, error)

	// ReadConflict returns the conflict row recorded at path, if any.
	// A nil row with a nil error indicates no conflict is recorded.
	ReadConflict(path string) (*ConflictRow, error)

	// MarkConflict records a conflict row at path. The caller has
	// already determined (via ReadConflict and its own equivalence
	// check) whether this is a fresh mark, an idempotent re-mark of an
	// equivalent conflict, or an incompatible mark; MarkConflict simply
	// writes the row it's given. Package wc is responsible for the
	// ObstructedUpdate decision before calling this.
	MarkConflict(row ConflictRow) error

	// SetProps writes actual (working) properties at path. Passing a
	// nil map clears the row, which the caller does when the merged
	// properties match the node's own layer.
	SetProps(path string, props map[string]string) error

	// WQAdd appends a work item to the work queue spool.
	WQAdd(item WorkItemRow) error

	// NotifyAdd appends a record to the notification spool.
	NotifyAdd(record NotificationRow) error

	// OpDepthMovedTo finds the move whose source covers path at any
	// op-depth strictly greater than aboveOpDepth. It returns
	// (MoveTarget{}, false, nil) if no such move exists.
	OpDepthMovedTo(path string, aboveOpDepth int) (MoveTarget, bool, error)

	// ShadowLayer climbs from path to find the lowest working layer
	// strictly above aboveOpDepth that covers it, and widens to that
	// layer's own op-root. It backs the conflict engine's anchor
	// computation (check_tree_conflict): the returned opRoot is the
	// conflict anchor, and opDepth is the op-depth of that layer. found
	// is false if no such layer exists anywhere on path's ancestor
	// chain.
	ShadowLayer(path string, aboveOpDepth int) (opRoot string, opDepth int, found bool, err error)

	// ExtendParentDelete maintains a base-delete shadow covering path
	// at opDepth after a node of the given kind is added above a lower
	// layer.
	ExtendParentDelete(path string, kind Kind, opDepth int) error

	// RetractParentDelete removes a base-delete shadow at path and
	// opDepth that is no longer needed because the node it shadowed has
	// been removed.
	RetractParentDelete(path string, opDepth int) error

	// CopyNodeMove copies the row at srcPath/srcOpDepth into
	// dstPath/dstOpDepth, recorded as a child of parentDst. Used
	// exclusively by the layer replacer (C5).
	CopyNodeMove(srcPath string, srcOpDepth int, dstPath string, dstOpDepth int, parentDst string) error

	// DeleteNoLowerLayer deletes the row at path/opDepth, asserting
	// that no lower layer remains to be exposed. It belongs to the
	// layer-rewrite primitive set; package wc does not call it.
	DeleteNoLowerLayer(path string, opDepth int, opDepthBelow int) error

	// ReplaceWithBaseDeleted replaces the row at path/opDepth with a
	// base-delete marker. It belongs to the layer-rewrite primitive set;
	// package wc does not call it.
	ReplaceWithBaseDeleted(path string, opDepth int) error

	// DeleteWorkingOpDepth removes the working row at path/opDepth
	// entirely (not replacing it with a base-delete marker). Used by the
	// tree walker to retract a deleted destination node and by the
	// receiver's delete handling.
	DeleteWorkingOpDepth(path string, opDepth int) error

	// UpdateOpDepthRecursive renumbers every row at or under path whose
	// op-depth is fromOpDepth to toOpDepth. Used by the receiver's
	// delete handling when reparenting a locally modified layer.
	UpdateOpDepthRecursive(path string, fromOpDepth int, toOpDepth int) error
}

// Backend opens the single outer transaction that frames a resolution,
// per spec.md invariant 1 and §5 ("single-threaded, cooperative within
// one outer transaction"). A transaction failure rolls back every
// spooled row; only a committed transaction's notifications and work
// items are ever visible outside.
type Backend interface {
	// Begin opens a new transaction.
	Begin() (Tx, error)
	// Commit commits a transaction opened by Begin.
	Commit(Tx) error
	// Rollback aborts a transaction opened by Begin, discarding every
	// spooled row and node write.
	Rollback(Tx) error
}
