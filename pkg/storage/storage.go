// Package storage persists documents by name.
//
// Two backends are provided: [FileStore] keeps one JSON file per document in
// a directory and [MongoStore] keeps documents in MongoDB. Both store the
// encoded bytes verbatim, so what is loaded is exactly what was saved.
//
// Before a legacy document is overwritten by its migrated form, callers save
// the original bytes with Backup. FileStore writes the backup next to the
// document as "<file>.v1.backup".
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named document does not exist.
var ErrNotFound = errors.New("document not found")

// Store loads and saves encoded documents by name. Names are validated with
// [errors.ValidateDocumentName] by every backend.
type Store interface {
	// Load returns the stored bytes of the document.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save stores data under name, replacing any previous content.
	Save(ctx context.Context, name string, data []byte) error

	// Backup stores the pre-migration bytes of a document.
	Backup(ctx context.Context, name string, data []byte) error

	// List returns the names of all stored documents in ascending order.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
