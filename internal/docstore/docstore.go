// Package docstore defines the shared vocabulary between the ledger and the
// document-store backends: classified failure sentinels and the revision
// token used for conditional writes.
//
// Backends (Firestore, in-memory) map their native failures onto the
// sentinels below so that callers classify with errors.Is instead of
// inspecting error text.
package docstore

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrIndexMissing indicates an ordered query failed because the backend
	// lacks the required composite index. Callers may retry the same filter
	// without ordering and sort client-side.
	ErrIndexMissing = errors.New("docstore: composite index missing")

	// ErrUnavailable indicates the backend could not be reached or timed out.
	ErrUnavailable = errors.New("docstore: backend unavailable")

	// ErrConflict indicates a conditional write lost against a concurrent
	// update: the revision presented no longer matches the stored document.
	ErrConflict = errors.New("docstore: revision conflict")
)

// Revision identifies the version of a document as observed by a read.
// Passing it back on an update makes the write conditional: the backend
// rejects the write with ErrConflict when the document has changed since.
//
// Firestore backs it with the document update time; the in-memory store
// uses a per-document sequence number. Both fields are set by the backend
// that produced the revision and are opaque to callers.
type Revision struct {
	UpdateTime time.Time
	Seq        uint64
}
