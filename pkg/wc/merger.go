package wc

import "io"

// Merger is the external collaborator that performs a three-way content
// merge of a file's text during alter_file. It is the only component
// permitted to understand file formats or merge markers; the resolver
// itself treats file content as opaque bytes.
type Merger interface {
	// Merge reconciles base against local and incoming, writing the
	// merged result (conflict markers included, when the merge cannot be
	// resolved automatically) to out. It reports whether the merge
	// produced a clean result, a no-op (local and incoming agree with
	// base), or a conflict.
	Merge(out io.Writer, base, local, incoming io.Reader) (MergeState, error)
}

// PristineStore is the external collaborator that holds content-addressed
// file bodies, keyed by checksum. The resolver never reads or writes file
// bytes directly; it only ever references a checksum and leaves
// materialization to a work item executed after commit.
type PristineStore interface {
	// Open returns a reader over the pristine content for the given
	// checksum. The caller is responsible for closing it.
	Open(checksum []byte) (io.ReadCloser, error)

	// Put stores content and returns its checksum.
	Put(content io.Reader) ([]byte, error)
}

// WorkingStore is the external collaborator that exposes the literal,
// possibly locally-modified on-disk content at a working-copy path. It
// is distinct from PristineStore: the pristine store is addressed by
// checksum and only ever holds committed content, while the working
// store reads whatever is actually on disk right now. alterFile
// consults it to source the "local" side of a three-way merge; without
// it, local content is indistinguishable from base and a genuine local
// edit can never be detected.
type WorkingStore interface {
	// Open returns a reader over the on-disk content at path. The
	// caller is responsible for closing it.
	Open(path string) (io.ReadCloser, error)
}

// WorkQueueExecutor is the external collaborator that performs the
// filesystem actions described by spooled work items, strictly after the
// enclosing transaction has committed. The resolver never touches the
// filesystem itself.
type WorkQueueExecutor interface {
	// Execute performs the action described by item. It is called once
	// per committed work item, in the order the items were spooled.
	Execute(item WorkItem) error
}

// NotificationSink is the external collaborator that receives
// notification records once per committed transaction, in walk order.
type NotificationSink interface {
	// Notify delivers a single notification record.
	Notify(record NotificationRecord)
}

// CancellationFunc is polled by the tree walker between nodes. Returning
// true aborts the walk with ErrCancelled and rolls back the enclosing
// transaction.
type CancellationFunc func() bool
