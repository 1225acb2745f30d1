package wc

import (
	"github.com/chrisyuyangshen/subversion/pkg/identifier"
	"github.com/chrisyuyangshen/subversion/pkg/logging"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
)

// Collaborators bundles the external collaborators a resolution needs.
// Merger, Pristine, Working, Notify, and Cancel may all be nil: a nil
// Merger falls back to plain installation on content divergence, a nil
// Pristine store or nil Working store disables merge invocation (both
// are required together for the three-way merge to run at all), a nil
// Notify sink silently discards notifications, and a nil Cancel is
// never polled.
type Collaborators struct {
	Backend  store.Backend
	Merger   Merger
	Pristine PristineStore
	Working  WorkingStore
	Executor WorkQueueExecutor
	Notify   NotificationSink
	Cancel   CancellationFunc
}

// Request describes a single resolution: the move whose source is the
// tree-conflict victim, and the repository change that produced the
// conflict.
type Request struct {
	// Victim is the tree-conflict victim path at the move source, as
	// spec.md §2's control flow names it. When set, Resolve discovers
	// Move from it via ReadConflict/OpDepthMovedTo right after opening
	// the transaction and before locking any op-root, and the Move
	// passed in is replaced. When empty, the caller is
	// expected to have already discovered and populated Move itself.
	Victim      string
	Move        MoveRecord
	Operation   Operation
	OldRevision int64
	NewRevision int64
	// SourceRevisions lists every distinct repository revision present
	// among the move source's base rows. A resolver is invoked only once
	// invariant 2 has been checked by the caller that discovers the
	// move; Resolve re-validates it defensively.
	SourceRevisions []int64
	// SwitchedSubtree is true if the move source falls under a URL that
	// was independently switched, which also violates invariant 2.
	SwitchedSubtree bool
}

// Resolve drives the full C2-C5 pipeline for a single move: it opens the
// outer transaction, walks the move source against the move destination,
// applies edits and conflicts through the receiver and conflict engine,
// rewrites the destination's layer to mirror the source, and commits.
// On any error the transaction is rolled back and nothing becomes
// visible, per invariant 5.
func Resolve(c Collaborators, req Request) error {
	if len(req.SourceRevisions) > 1 {
		return newError(KindMixedRevisionSource, "move source %q spans %d revisions", req.Move.SrcRelpath, len(req.SourceRevisions))
	}
	if req.SwitchedSubtree {
		return newError(KindSwitchedSubtree, "move source %q is under a switched URL", req.Move.SrcRelpath)
	}
	if req.Operation != OperationUpdate && req.Operation != OperationSwitch {
		return newError(KindUnsupportedConflict, "conflict operation %v is neither update nor switch", req.Operation)
	}

	tx, err := c.Backend.Begin()
	if err != nil {
		return wrapError(KindResolverFailure, err, "begin transaction")
	}
	// Unlock releases whatever LockOpRoots acquired below, on every
	// return path including a Rollback: without it, a second Resolve
	// against the same op-root (spec.md §8's idempotence property)
	// deadlocks forever on the never-released lock.
	defer tx.Unlock()

	if req.Victim != "" {
		move, err := discoverMove(tx, req.Victim)
		if err != nil {
			c.Backend.Rollback(tx)
			return err
		}
		req.Move = move
	}

	logger := logging.RootLogger.Sublogger("wc")
	id, idErr := identifier.New(identifier.PrefixTransaction)
	if idErr == nil {
		logger = logger.Sublogger(id)
	}
	logger.Debugf("resolving move %s -> %s", req.Move.SrcRelpath, req.Move.DstRelpath)

	if err := tx.LockOpRoots(req.Move.SrcRelpath, req.Move.DstRelpath); err != nil {
		c.Backend.Rollback(tx)
		return wrapError(KindNotLocked, err, "lock op roots")
	}

	dstDepth := pathDepth(req.Move.DstRelpath)
	srcDepth := req.Move.SrcOpDepth

	engine := &conflictEngine{
		tx:          tx,
		dstDepth:    dstDepth,
		operation:   req.Operation,
		oldRevision: req.OldRevision,
		newRevision: req.NewRevision,
	}
	recv := &receiver{
		tx:       tx,
		dstDepth: dstDepth,
		engine:   engine,
		merger:   c.Merger,
		pristine: c.Pristine,
		working:  c.Working,
		oldRev:   req.OldRevision,
		newRev:   req.NewRevision,
	}
	w := &walker{
		tx:       tx,
		srcDepth: srcDepth,
		dstDepth: dstDepth,
		receiver: recv,
		cancel:   c.Cancel,
	}

	if err := w.walk(req.Move.SrcRelpath, req.Move.DstRelpath, false); err != nil {
		c.Backend.Rollback(tx)
		logger.Debugf("walk aborted: %v", err)
		return err
	}

	replacer := &layerReplacer{tx: tx, srcDepth: srcDepth, dstDepth: dstDepth}
	if err := replacer.replace(req.Move.SrcRelpath, req.Move.DstRelpath); err != nil {
		c.Backend.Rollback(tx)
		return err
	}

	if err := c.Backend.Commit(tx); err != nil {
		return wrapError(KindResolverFailure, err, "commit transaction")
	}

	flush(c.Notify, recv.spooled)
	if err := execute(c.Executor, recv.spooledItems); err != nil {
		logger.Warn(err)
	}
	logger.Debug("resolution committed")
	return nil
}

// discoverMove implements the victim-to-move-destination lookup spec.md
// §2's control flow assigns to C1: read_conflict(V) to confirm V
// carries a recorded, moved-away tree conflict, then op_depth_moved_to
// to locate the move destination D.
func discoverMove(tx store.Tx, victim string) (MoveRecord, error) {
	row, err := tx.ReadConflict(victim)
	if err != nil {
		return MoveRecord{}, wrapError(KindResolverFailure, err, "read victim conflict")
	}
	if row == nil {
		return MoveRecord{}, newError(KindNotInConflict, "victim %q carries no recorded conflict", victim)
	}

	skeleton, err := decodeConflictSkeleton(row.Payload)
	if err != nil {
		return MoveRecord{}, wrapError(KindResolverFailure, err, "decode victim conflict")
	}
	if skeleton.Reason != ConflictReasonMovedAway {
		return MoveRecord{}, newError(KindNotMovedAway, "victim %q conflict reason is %v, not moved_away", victim, skeleton.Reason)
	}

	target, ok, err := tx.OpDepthMovedTo(victim, -1)
	if err != nil {
		return MoveRecord{}, wrapError(KindResolverFailure, err, "locate move destination")
	}
	if !ok {
		return MoveRecord{}, newError(KindNotMovedAway, "victim %q has no recorded move destination", victim)
	}

	return MoveRecord{
		SrcRelpath: victim,
		DstRelpath: target.DstRelpath,
		SrcOpDepth: target.SrcOpDepth,
	}, nil
}

// execute hands every work item spooled by a just-committed resolution
// to the executor, in spool order. It is a no-op if executor is nil.
// Per the work-queue executor's contract (§6), it is expected to be
// idempotent on replay, so a failure partway through is reported but
// does not itself reopen the transaction.
func execute(executor WorkQueueExecutor, items []WorkItem) error {
	if executor == nil {
		return nil
	}
	for _, item := range items {
		if err := executor.Execute(item); err != nil {
			return wrapError(KindResolverFailure, err, "execute work item")
		}
	}
	return nil
}

// Bump drives C6 for a batch of move candidates discovered under a bulk
// update's root, without walking content edits for candidates that can
// be fast-forwarded. It returns the destination paths that were bumped.
func Bump(c Collaborators, candidates []MoveCandidate, depth UpdateDepth, operation Operation, oldRevision, newRevision int64, dstDepthOf func(string) int) ([]string, error) {
	tx, err := c.Backend.Begin()
	if err != nil {
		return nil, wrapError(KindResolverFailure, err, "begin transaction")
	}
	defer tx.Unlock()

	for _, candidate := range candidates {
		if err := tx.LockOpRoots(candidate.Src, candidate.Dst); err != nil {
			c.Backend.Rollback(tx)
			return nil, wrapError(KindNotLocked, err, "lock op roots")
		}
	}

	engine := &bumpEngine{
		tx:          tx,
		dstDepthOf:  dstDepthOf,
		operation:   operation,
		oldRevision: oldRevision,
		newRevision: newRevision,
	}
	bumped, err := engine.Bump(candidates, depth)
	if err != nil {
		c.Backend.Rollback(tx)
		return nil, err
	}

	if err := c.Backend.Commit(tx); err != nil {
		return nil, wrapError(KindResolverFailure, err, "commit transaction")
	}
	return bumped, nil
}

// flush delivers notifications spooled during a just-committed
// resolution to the sink, in walk order. It is a no-op if sink is nil,
// and is only ever called after Backend.Commit has succeeded, so that
// an aborted resolution never reaches the sink (invariant 5).
func flush(sink NotificationSink, records []NotificationRecord) {
	if sink == nil {
		return
	}
	for _, record := range records {
		sink.Notify(record)
	}
}

// pathDepth returns the number of components in a root-relative path,
// used to compute the destination op-depth invariant (it equals the
// path depth of the destination op-root).
func pathDepth(path string) int {
	if path == "" {
		return 0
	}
	depth := 1
	for _, r := range path {
		if r == '/' {
			depth++
		}
	}
	return depth
}
