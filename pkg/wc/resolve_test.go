package wc

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store/memstore"
)

// recordingSink captures every notification delivered to it, in order.
type recordingSink struct {
	records []NotificationRecord
}

func (s *recordingSink) Notify(record NotificationRecord) {
	s.records = append(s.records, record)
}

// recordingExecutor captures every work item delivered to it, in order.
type recordingExecutor struct {
	items []WorkItem
}

func (e *recordingExecutor) Execute(item WorkItem) error {
	e.items = append(e.items, item)
	return nil
}

func TestResolveEditOnMovedFileNoLocalEdits(t *testing.T) {
	// S1: source a/f moves R -> R+1, pristine C1 -> C2, props {k:1} -> {k:2}.
	// The user moved a -> b before the update.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/f", 1, store.Info{
		Kind:     store.KindFile,
		Revision: 7,
		Checksum: []byte("C2"),
		Props:    map[string]string{"k": "2"},
	})
	backend.PutLayer("b/f", 1, store.Info{
		Kind:     store.KindFile,
		Revision: 6,
		Checksum: []byte("C1"),
		Props:    map[string]string{"k": "1"},
	})
	backend.PutMove("a", "b", 1)

	sink := &recordingSink{}
	executor := &recordingExecutor{}
	err := Resolve(Collaborators{Backend: backend, Notify: sink, Executor: executor}, Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 notification, got %d: %+v", len(sink.records), sink.records)
	}
	record := sink.records[0]
	if record.Path != "b/f" || record.Action != NotificationUpdateUpdate {
		t.Fatalf("unexpected notification: %+v", record)
	}
	if record.ContentState != MergeStateChanged || record.PropState != MergeStateChanged {
		t.Fatalf("expected content/prop state changed, got %v/%v", record.ContentState, record.PropState)
	}

	if len(executor.items) != 1 || executor.items[0].Kind != WorkItemInstallFile {
		t.Fatalf("expected one install-file work item, got %+v", executor.items)
	}
	if string(executor.items[0].FromPristine) != "C2" {
		t.Fatalf("expected install from pristine C2, got %q", executor.items[0].FromPristine)
	}

	if rows := backend.Conflicts(); len(rows) != 0 {
		t.Fatalf("expected no conflicts, got %+v", rows)
	}
}

func TestResolveDeleteOnMovedDirectorySubtree(t *testing.T) {
	// S3: source a/sub is deleted by the update; sub is unmodified at
	// b/sub.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b/sub", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b/sub/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("C")})
	backend.PutMove("a", "b", 1)

	sink := &recordingSink{}
	executor := &recordingExecutor{}
	err := Resolve(Collaborators{Backend: backend, Notify: sink, Executor: executor}, Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var deleteNotifications int
	for _, record := range sink.records {
		if record.Action == NotificationUpdateDelete && record.Path == "b/sub" {
			deleteNotifications++
		}
	}
	if deleteNotifications != 1 {
		t.Fatalf("expected exactly one update_delete notification for b/sub, got %d: %+v", deleteNotifications, sink.records)
	}

	var removedChild, removedDir bool
	for _, item := range executor.items {
		if item.Path == "b/sub/f" && item.Kind == WorkItemRemoveFile {
			removedChild = true
		}
		if item.Path == "b/sub" && item.Kind == WorkItemRemoveDirectory {
			removedDir = true
		}
	}
	if !removedChild || !removedDir {
		t.Fatalf("expected removal work items for b/sub and its child, got %+v", executor.items)
	}
}

func TestResolveAddObstructedByUnversionedContent(t *testing.T) {
	// S4: source adds a/new; b/new is obstructed on disk.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/new", 1, store.Info{Kind: store.KindDirectory})
	backend.PutMove("a", "b", 1)

	prior := unversionedObstructionHook
	unversionedObstructionHook = func(path string) bool { return path == "b/new" }
	defer func() { unversionedObstructionHook = prior }()

	sink := &recordingSink{}
	executor := &recordingExecutor{}
	err := Resolve(Collaborators{Backend: backend, Notify: sink, Executor: executor}, Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var sawTreeConflictNotification bool
	for _, record := range sink.records {
		if record.Path == "b/new" && record.Action == NotificationTreeConflict {
			sawTreeConflictNotification = true
		}
	}
	if !sawTreeConflictNotification {
		t.Fatalf("expected a tree_conflict notification for b/new, got %+v", sink.records)
	}

	for _, item := range executor.items {
		if item.Path == "b/new" {
			t.Fatalf("expected no install work item for obstructed b/new, got %+v", item)
		}
	}

	rows := backend.Conflicts()
	if len(rows) != 1 || rows[0].Path != "b/new" {
		t.Fatalf("expected one conflict recorded at b/new, got %+v", rows)
	}
}

func TestResolveRejectsMixedRevisionSource(t *testing.T) {
	// S5: the move source's base rows span multiple revisions.
	backend := memstore.New()
	err := Resolve(Collaborators{Backend: backend}, Request{
		Move:            MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:       OperationUpdate,
		SourceRevisions: []int64{5, 6},
	})
	if !IsKind(err, KindMixedRevisionSource) {
		t.Fatalf("expected KindMixedRevisionSource, got %v", err)
	}
	if rows := backend.Conflicts(); len(rows) != 0 {
		t.Fatalf("expected no conflicts or writes, got %+v", rows)
	}
}

func TestResolveRejectsSwitchedSubtree(t *testing.T) {
	backend := memstore.New()
	err := Resolve(Collaborators{Backend: backend}, Request{
		Move:            MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:       OperationUpdate,
		SwitchedSubtree: true,
	})
	if !IsKind(err, KindSwitchedSubtree) {
		t.Fatalf("expected KindSwitchedSubtree, got %v", err)
	}
}

func TestBumpWithSufficientDepth(t *testing.T) {
	// S6: bulk update at depth infinity over root r; r/a -> r/b move
	// exists with no intervening layers.
	backend := memstore.New()
	backend.PutLayer("r", 0, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("r/a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("r/b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutMove("r/a", "r/b", 1)

	bumped, err := Bump(Collaborators{Backend: backend}, []MoveCandidate{
		{Src: "r/a", Dst: "r/b", SrcOpDepth: 1},
	}, UpdateDepthInfinity, OperationUpdate, 10, 11, nil)
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if len(bumped) != 1 || bumped[0] != "r/b" {
		t.Fatalf("expected r/b to be bumped, got %+v", bumped)
	}
	if rows := backend.Conflicts(); len(rows) != 0 {
		t.Fatalf("expected no conflicts after a clean bump, got %+v", rows)
	}
}

func TestBumpWithInsufficientDepthRaisesMoveEditConflict(t *testing.T) {
	backend := memstore.New()
	backend.PutLayer("r/a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("r/a/child", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("r/b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutMove("r/a", "r/b", 1)

	bumped, err := Bump(Collaborators{Backend: backend}, []MoveCandidate{
		{Src: "r/a", Dst: "r/b", SrcOpDepth: 1},
	}, UpdateDepthEmpty, OperationUpdate, 10, 11, nil)
	if err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if len(bumped) != 0 {
		t.Fatalf("expected no moves bumped, got %+v", bumped)
	}
	rows := backend.Conflicts()
	if len(rows) != 1 || rows[0].Path != "r/a" {
		t.Fatalf("expected a move-edit conflict at r/a, got %+v", rows)
	}
}

func TestResolveIsIdempotentOnSecondCall(t *testing.T) {
	// spec.md §8: applying the resolver twice against the same op-root is
	// a no-op in the second pass. Before Tx gained Unlock, the second
	// Resolve call against the same op-root deadlocked on LockOpRoots.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("C2")})
	backend.PutLayer("b/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("C1")})
	backend.PutMove("a", "b", 1)

	request := Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	}

	if err := Resolve(Collaborators{Backend: backend}, request); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- Resolve(Collaborators{Backend: backend}, request) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Resolve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Resolve deadlocked on a lock the first call never released")
	}
}

func TestResolveDiscoversMoveFromVictim(t *testing.T) {
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("C2")})
	backend.PutLayer("b/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("C1")})
	backend.PutMove("a", "b", 1)

	skeleton := &ConflictSkeleton{
		Path:   "a",
		Kind:   ConflictKindTree,
		Reason: ConflictReasonMovedAway,
	}
	payload, err := encodeConflictSkeleton(skeleton)
	if err != nil {
		t.Fatalf("encodeConflictSkeleton: %v", err)
	}
	backend.PutConflict(store.ConflictRow{Path: "a", Payload: payload})

	sink := &recordingSink{}
	err = Resolve(Collaborators{Backend: backend, Notify: sink}, Request{
		Victim:      "a",
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].Path != "b/f" {
		t.Fatalf("expected a notification for the discovered destination b/f, got %+v", sink.records)
	}
}

func TestResolveVictimNotInConflict(t *testing.T) {
	backend := memstore.New()
	err := Resolve(Collaborators{Backend: backend}, Request{
		Victim:    "a",
		Operation: OperationUpdate,
	})
	if !IsKind(err, KindNotInConflict) {
		t.Fatalf("expected KindNotInConflict, got %v", err)
	}
}

func TestResolveVictimNotMovedAway(t *testing.T) {
	backend := memstore.New()
	skeleton := &ConflictSkeleton{
		Path:   "a",
		Kind:   ConflictKindTree,
		Reason: ConflictReasonEdited,
	}
	payload, err := encodeConflictSkeleton(skeleton)
	if err != nil {
		t.Fatalf("encodeConflictSkeleton: %v", err)
	}
	backend.PutConflict(store.ConflictRow{Path: "a", Payload: payload})

	err = Resolve(Collaborators{Backend: backend}, Request{
		Victim:    "a",
		Operation: OperationUpdate,
	})
	if !IsKind(err, KindNotMovedAway) {
		t.Fatalf("expected KindNotMovedAway, got %v", err)
	}
}

// fakeMerger always reports a clean merge, recording which content it
// was given as local so the test can tell it ran against genuinely
// distinct content rather than a checksum-addressed stand-in.
type fakeMerger struct {
	calls int
	local string
}

func (m *fakeMerger) Merge(out io.Writer, base, local, incoming io.Reader) (MergeState, error) {
	m.calls++
	localBytes, err := io.ReadAll(local)
	if err != nil {
		return MergeStateUnchanged, err
	}
	m.local = string(localBytes)
	out.Write(localBytes)
	return MergeStateMerged, nil
}

// fakePristineStore is a trivial checksum-addressed content map.
type fakePristineStore struct {
	byChecksum map[string]string
}

func (p *fakePristineStore) Open(checksum []byte) (io.ReadCloser, error) {
	content, ok := p.byChecksum[string(checksum)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewBufferString(content)), nil
}

func (p *fakePristineStore) Put(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	sum := []byte("merged:" + string(data))
	p.byChecksum[string(sum)] = string(data)
	return sum, nil
}

// fakeWorkingStore exposes a fixed on-disk content per path, independent
// of the pristine store's checksum addressing.
type fakeWorkingStore struct {
	byPath map[string]string
}

func (w *fakeWorkingStore) Open(path string) (io.ReadCloser, error) {
	content, ok := w.byPath[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewBufferString(content)), nil
}

func TestResolveMergesGenuineLocalEdit(t *testing.T) {
	// S2: the destination file was locally modified (working content
	// differs from old pristine) when the update also changed the
	// source's checksum. Before WorkingStore existed, "local" was
	// sourced from the pristine store by checksum, making it identical
	// to "base" and the local edit undetectable.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("new")})
	backend.PutLayer("b/f", 1, store.Info{Kind: store.KindFile, Checksum: []byte("old")})
	backend.PutMove("a", "b", 1)

	pristine := &fakePristineStore{byChecksum: map[string]string{
		"old": "base content",
		"new": "incoming content",
	}}
	working := &fakeWorkingStore{byPath: map[string]string{
		"b/f": "locally edited content",
	}}
	merger := &fakeMerger{}

	err := Resolve(Collaborators{
		Backend:  backend,
		Merger:   merger,
		Pristine: pristine,
		Working:  working,
	}, Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if merger.calls != 1 {
		t.Fatalf("expected the merger to run once, got %d calls", merger.calls)
	}
	if merger.local != "locally edited content" {
		t.Fatalf("expected the merger to see the working store's content as local, got %q", merger.local)
	}
}

func TestResolveMergesDistinctActualProps(t *testing.T) {
	// Property analogue of S2: a prior set_props left an actual-table
	// override distinct from both the node's base props and the
	// incoming props, so the three-way merge has three genuinely
	// different inputs and can reach MergeStateMerged.
	backend := memstore.New()
	backend.PutLayer("a", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("b", 1, store.Info{Kind: store.KindDirectory})
	backend.PutLayer("a/f", 1, store.Info{
		Kind:     store.KindFile,
		Checksum: []byte("same"),
		Props:    map[string]string{"base": "1", "new": "added-by-update"},
	})
	backend.PutLayer("b/f", 1, store.Info{
		Kind:        store.KindFile,
		Checksum:    []byte("same"),
		Props:       map[string]string{"base": "1"},
		ActualProps: map[string]string{"base": "1", "local": "added-by-user"},
	})
	backend.PutMove("a", "b", 1)

	sink := &recordingSink{}
	err := Resolve(Collaborators{Backend: backend, Notify: sink}, Request{
		Move:        MoveRecord{SrcRelpath: "a", DstRelpath: "b", SrcOpDepth: 1},
		Operation:   OperationUpdate,
		OldRevision: 6,
		NewRevision: 7,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 notification, got %d: %+v", len(sink.records), sink.records)
	}
	if sink.records[0].PropState != MergeStateMerged {
		t.Fatalf("expected a clean property merge combining both sides' additions, got %v", sink.records[0].PropState)
	}
}
