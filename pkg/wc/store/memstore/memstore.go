// Package memstore is a reference, in-memory implementation of the
// store.Backend/store.Tx contract (C1). It exists because spec.md treats
// the relational store as an external collaborator reached through a
// narrow interface (spec.md §6); no real SQL binding belongs in this
// repository. memstore lets the resolver and its tests run against a
// layered node model without a database, the same way the teacher's core
// package tests operate purely on in-memory entry trees.
package memstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/chrisyuyangshen/subversion/pkg/state"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
)

type moveEntry struct {
	src, dst string
	opDepth  int
}

// layerKey identifies a single (path, op-depth) row.
type layerKey struct {
	path    string
	opDepth int
}

// snapshot is the mutable state a transaction operates on: a copy of the
// backend's committed state plus whatever this transaction has spooled.
type snapshot struct {
	nodes       map[layerKey]store.Info
	moves       []moveEntry
	conflicts   map[string]store.ConflictRow
	workItems   []store.WorkItemRow
	notifications []store.NotificationRow
}

func cloneSnapshot(s *snapshot) *snapshot {
	out := &snapshot{
		nodes:     make(map[layerKey]store.Info, len(s.nodes)),
		conflicts: make(map[string]store.ConflictRow, len(s.conflicts)),
	}
	for k, v := range s.nodes {
		out.nodes[k] = v
	}
	for k, v := range s.conflicts {
		out.conflicts[k] = v
	}
	out.moves = append(out.moves, s.moves...)
	// work item and notification spools start empty for a new
	// transaction; they do not carry over from prior commits.
	return out
}

// Store is the reference C1 implementation.
type Store struct {
	mu       sync.Mutex
	current  *snapshot
	locks    map[string]*state.TrackingLock
	// Tracker is notified on every committed transaction and on every
	// release of an op-root lock, so that the CLI harness's watch
	// subcommand can observe resolution activity from outside the
	// transaction.
	Tracker *state.Tracker
}

// New creates an empty store.
func New() *Store {
	return &Store{
		current: &snapshot{
			nodes:     make(map[layerKey]store.Info),
			conflicts: make(map[string]store.ConflictRow),
		},
		locks:   make(map[string]*state.TrackingLock),
		Tracker: state.NewTracker(),
	}
}

// lockFor returns (creating if necessary) the tracking lock for an
// op-root path.
func (s *Store) lockFor(opRoot string) *state.TrackingLock {
	if l, ok := s.locks[opRoot]; ok {
		return l
	}
	l := state.NewTrackingLock(s.Tracker)
	s.locks[opRoot] = l
	return l
}

// PutLayer seeds a row directly, for test fixture construction and the
// CLI harness's fixture loader. It bypasses locking and transactions
// entirely and must only be used before any resolver transaction is
// opened against the store.
func (s *Store) PutLayer(path string, opDepth int, info store.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.nodes[layerKey{path, opDepth}] = info
}

// PutMove seeds a move record directly, for fixture construction.
func (s *Store) PutMove(src, dst string, opDepth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.moves = append(s.current.moves, moveEntry{src, dst, opDepth})
}

// PutConflict seeds a conflict row directly, for fixture construction,
// mirroring PutLayer/PutMove. It is how tests stage the pre-existing
// tree conflict that Resolve's victim discovery (Request.Victim) reads
// back via ReadConflict.
func (s *Store) PutConflict(row store.ConflictRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.conflicts[row.Path] = row
}

// Conflicts returns a snapshot of every conflict currently recorded,
// sorted by path, for inspection by tests and the CLI harness.
func (s *Store) Conflicts() []store.ConflictRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]store.ConflictRow, 0, len(s.current.conflicts))
	for _, row := range s.current.conflicts {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}

// tx is the reference Tx implementation.
type tx struct {
	store    *Store
	snap     *snapshot
	locked   bool
	lockedAt map[string]bool
}

// Begin opens a new transaction over a fresh copy of the committed
// state. Per spec.md §5, the transaction is the sole suspension point;
// nothing here talks to any executor directly.
func (s *Store) Begin() (store.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &tx{store: s, snap: cloneSnapshot(s.current)}, nil
}

// Commit swaps the backend's committed state for the transaction's
// snapshot and notifies Tracker. It does not return the spooled work
// items and notifications; WorkItems and Notifications read them from the
// transaction. Per invariant 5, only a committed transaction's spools are
// ever visible outside.
func (s *Store) Commit(t store.Tx) error {
	mt, ok := t.(*tx)
	if !ok {
		return errors.New("foreign transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = mt.snap
	s.Tracker.NotifyOfChange()
	return nil
}

// Rollback discards the transaction's snapshot entirely. Nothing it
// spooled or wrote becomes visible.
func (s *Store) Rollback(t store.Tx) error {
	_, ok := t.(*tx)
	if !ok {
		return errors.New("foreign transaction")
	}
	return nil
}

// WorkItems returns the work items spooled by a (typically just
// committed) transaction, in insertion order.
func WorkItems(t store.Tx) []store.WorkItemRow {
	mt := t.(*tx)
	return mt.snap.workItems
}

// Notifications returns the notifications spooled by a (typically just
// committed) transaction, in insertion order.
func Notifications(t store.Tx) []store.NotificationRow {
	mt := t.(*tx)
	return mt.snap.notifications
}

func (t *tx) LockOpRoots(srcOpRoot, dstOpRoot string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.lockedAt == nil {
		t.lockedAt = make(map[string]bool)
	}
	for _, opRoot := range []string{srcOpRoot, dstOpRoot} {
		if t.lockedAt[opRoot] {
			// Already held by this transaction (e.g. a second
			// candidate sharing an op-root in a Bump batch); locking
			// again would self-deadlock the non-reentrant mutex.
			continue
		}
		t.store.lockFor(opRoot).Lock()
		t.lockedAt[opRoot] = true
	}
	t.locked = true
	return nil
}

// Unlock releases every op-root lock this transaction acquired. It is
// a no-op if LockOpRoots was never called or acquired nothing.
func (t *tx) Unlock() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for opRoot := range t.lockedAt {
		t.store.lockFor(opRoot).Unlock()
	}
	t.lockedAt = nil
	t.locked = false
}

func (t *tx) requireLocked() error {
	if !t.locked {
		return store.ErrNotLocked
	}
	return nil
}

func (t *tx) DepthGetInfo(path string, opDepth int) (store.Info, error) {
	info, ok := t.snap.nodes[layerKey{path, opDepth}]
	if !ok {
		return store.Info{}, store.ErrNotFound
	}
	return info, nil
}

func (t *tx) GetChildren(path string, opDepth int) ([]string, error) {
	var names []string
	prefix := path
	if prefix != "" {
		prefix += "/"
	}
	for key := range t.snap.nodes {
		if key.opDepth != opDepth {
			continue
		}
		if !strings.HasPrefix(key.path, prefix) || key.path == path {
			continue
		}
		rest := strings.TrimPrefix(key.path, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names, nil
}

func (t *tx) ReadConflict(path string) (*store.ConflictRow, error) {
	row, ok := t.snap.conflicts[path]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (t *tx) MarkConflict(row store.ConflictRow) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	t.snap.conflicts[row.Path] = row
	return nil
}

func (t *tx) SetProps(path string, props map[string]string) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	// SetProps writes the "actual" override into the highest existing
	// layer's ActualProps field, kept distinct from Props (the node's
	// own versioned properties) so a later three-way property merge can
	// still tell base from actual apart.
	for depth := maxDepthFor(t.snap, path); depth >= 0; depth-- {
		key := layerKey{path, depth}
		if info, ok := t.snap.nodes[key]; ok {
			info.ActualProps = props
			t.snap.nodes[key] = info
			return nil
		}
	}
	return nil
}

func maxDepthFor(s *snapshot, path string) int {
	max := -1
	for key := range s.nodes {
		if key.path == path && key.opDepth > max {
			max = key.opDepth
		}
	}
	return max
}

func (t *tx) WQAdd(item store.WorkItemRow) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	t.snap.workItems = append(t.snap.workItems, item)
	return nil
}

func (t *tx) NotifyAdd(record store.NotificationRow) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	t.snap.notifications = append(t.snap.notifications, record)
	return nil
}

func (t *tx) OpDepthMovedTo(path string, aboveOpDepth int) (store.MoveTarget, bool, error) {
	for _, m := range t.snap.moves {
		if m.opDepth <= aboveOpDepth {
			continue
		}
		if path == m.src || strings.HasPrefix(path, m.src+"/") {
			rest := strings.TrimPrefix(path, m.src)
			dst := m.dst + rest
			return store.MoveTarget{
				DstRelpath: dst,
				SrcRoot:    m.src,
				SrcOpRoot:  m.src,
				SrcOpDepth: m.opDepth,
			}, true, nil
		}
	}
	return store.MoveTarget{}, false, nil
}

func parentOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx == -1 {
		return ""
	}
	return path[:idx]
}

func (t *tx) ShadowLayer(path string, aboveOpDepth int) (string, int, bool, error) {
	best := -1
	for key := range t.snap.nodes {
		if key.path == path && key.opDepth > aboveOpDepth {
			if best == -1 || key.opDepth < best {
				best = key.opDepth
			}
		}
	}
	if best == -1 {
		if path == "" {
			return "", 0, false, nil
		}
		return t.ShadowLayer(parentOf(path), aboveOpDepth)
	}
	root := path
	for {
		if root == "" {
			break
		}
		parent := parentOf(root)
		if _, ok := t.snap.nodes[layerKey{parent, best}]; ok {
			root = parent
			continue
		}
		break
	}
	return root, best, true, nil
}

func (t *tx) ExtendParentDelete(path string, kind store.Kind, opDepth int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	key := layerKey{path, opDepth}
	if _, ok := t.snap.nodes[key]; !ok {
		t.snap.nodes[key] = store.Info{Status: store.PresenceBaseDeleted, Kind: kind}
	}
	return nil
}

func (t *tx) RetractParentDelete(path string, opDepth int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	key := layerKey{path, opDepth}
	if info, ok := t.snap.nodes[key]; ok && info.Status == store.PresenceBaseDeleted {
		delete(t.snap.nodes, key)
	}
	return nil
}

func (t *tx) CopyNodeMove(srcPath string, srcOpDepth int, dstPath string, dstOpDepth int, parentDst string) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	info, ok := t.snap.nodes[layerKey{srcPath, srcOpDepth}]
	if !ok {
		return store.ErrNotFound
	}
	t.snap.nodes[layerKey{dstPath, dstOpDepth}] = info
	return nil
}

func (t *tx) DeleteNoLowerLayer(path string, opDepth int, opDepthBelow int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	if _, ok := t.snap.nodes[layerKey{path, opDepthBelow}]; ok {
		return errors.New("lower layer exists")
	}
	delete(t.snap.nodes, layerKey{path, opDepth})
	return nil
}

func (t *tx) ReplaceWithBaseDeleted(path string, opDepth int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	existing := t.snap.nodes[layerKey{path, opDepth}]
	t.snap.nodes[layerKey{path, opDepth}] = store.Info{Status: store.PresenceBaseDeleted, Kind: existing.Kind}
	return nil
}

func (t *tx) DeleteWorkingOpDepth(path string, opDepth int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	delete(t.snap.nodes, layerKey{path, opDepth})
	return nil
}

func (t *tx) UpdateOpDepthRecursive(path string, fromOpDepth int, toOpDepth int) error {
	if err := t.requireLocked(); err != nil {
		return err
	}
	prefix := path
	if prefix != "" {
		prefix += "/"
	}
	for key, info := range t.snap.nodes {
		if key.opDepth != fromOpDepth {
			continue
		}
		if key.path != path && !strings.HasPrefix(key.path, prefix) {
			continue
		}
		delete(t.snap.nodes, key)
		t.snap.nodes[layerKey{key.path, toOpDepth}] = info
	}
	return nil
}
