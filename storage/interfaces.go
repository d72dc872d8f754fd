package storage

import (
	"context"

	"github.com/poiesic/capindex/core"
)

// DocumentRepository provides operations for managing indexed documents.
// Implementations must be thread-safe and support concurrent access.
// Path is the sole key: writes against the same path are atomic, so a reader
// never observes a partially written document.
type DocumentRepository interface {
	// PutDocument stores a document keyed by its Path, replacing any
	// existing document with the same path in a single transaction.
	// Sets InsertedAt on first write and refreshes UpdatedAt on every write.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a single document by path.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, path string) (*core.Document, error)

	// DeleteDocument removes a document by path.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, path string) error

	// ListDocuments retrieves all documents of the given entity types,
	// ordered by path ascending. No types means all documents.
	ListDocuments(ctx context.Context, types ...core.EntityType) ([]*core.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
