// Package notes defines the document store the sync engine writes to, plus
// a filesystem-backed implementation that keeps one HTML file per note.
package notes

import "errors"

// DocumentID is an opaque handle to one note, stable across body edits.
type DocumentID string

var (
	// ErrNotFound reports an operation against a document that does not
	// exist (anymore).
	ErrNotFound = errors.New("note not found")

	// ErrReplaceUnsupported is returned by stores that cannot swap a body
	// in place. Callers fall back to delete-then-create.
	ErrReplaceUnsupported = errors.New("store cannot replace note bodies in place")
)

// Store is the set of primitives the sync engine needs from a note store.
// All calls are synchronous; the store serializes access to the underlying
// medium itself. Implementations must make each call independently atomic
// so an interrupted run leaves notes either fully written or untouched.
type Store interface {
	// ListDocuments enumerates the notes directly inside folder. A folder
	// that does not exist yet yields an empty list, not an error.
	ListDocuments(folder string) ([]DocumentID, error)

	// ReadBody returns a note's full body. ErrNotFound if it is gone.
	ReadBody(id DocumentID) (string, error)

	// Create adds a new note to folder and returns its handle. The note's
	// display title is derived from the body by the store.
	Create(folder, body string) (DocumentID, error)

	// Replace swaps a note's entire body. Stores without in-place
	// replacement return ErrReplaceUnsupported.
	Replace(id DocumentID, body string) error

	// Append adds a fragment to the end of a note's body.
	Append(id DocumentID, fragment string) error

	// MoveToSubfolder relocates a note into a named subfolder of folder,
	// creating the subfolder when needed.
	MoveToSubfolder(id DocumentID, folder, subfolder string) error

	// Delete removes a note permanently.
	Delete(id DocumentID) error
}
