package badger

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
//
// Returns storage.DocumentRepository interface to enforce abstraction.
func NewDocumentRepository(backend *Backend) storage.DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the underlying backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// PutDocument stores a document keyed by its Path.
// The document record and its entity-type index entry are written in a single
// transaction, so readers never observe a partially written document.
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *core.Document) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Path)

		old, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil && !old.InsertedAt.IsZero() {
			doc.InsertedAt = old.InsertedAt
		} else {
			doc.InsertedAt = now
		}
		doc.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		// Refresh the type index if the entity type changed
		if old != nil && old.Type != doc.Type {
			if err := tx.Delete(makeDocumentTypeKey(old.Type, doc.Path)); err != nil {
				return err
			}
		}
		if err := tx.Set(makeDocumentTypeKey(doc.Type, doc.Path), []byte(doc.Path)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by path.
func (r *DocumentRepository) GetDocument(ctx context.Context, path string) (*core.Document, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = r.readDocument(tx, makeDocumentKey(path))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// DeleteDocument removes a document and its type index entry by path.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, path string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(path)

		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentTypeKey(doc.Type, path)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// ListDocuments retrieves all documents of the given entity types, ordered by
// path ascending. No types means all documents.
func (r *DocumentRepository) ListDocuments(ctx context.Context, types ...core.EntityType) ([]*core.Document, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if len(types) == 0 {
			return r.scanAll(ctx, tx, &docs)
		}
		for _, entityType := range types {
			if err := r.scanType(ctx, tx, entityType, &docs); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Per-type scans are each ordered; a multi-type scan needs a final sort.
	if len(types) > 1 {
		sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	}

	return docs, nil
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepository) scanAll(ctx context.Context, tx *badger.Txn, docs *[]*core.Document) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var doc *core.Document
		err := iter.Item().Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
		if err != nil {
			return err
		}
		*docs = append(*docs, doc)
	}
	return nil
}

func (r *DocumentRepository) scanType(ctx context.Context, tx *badger.Txn, entityType core.EntityType, docs *[]*core.Document) error {
	prefix := makePartialDocumentTypeKey(entityType)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := iter.Item().Key()
		path := string(bytes.TrimPrefix(key, prefix))

		doc, err := r.readDocument(tx, makeDocumentKey(path))
		if err != nil {
			return err
		}
		if doc == nil {
			// Dangling index entry; skip rather than fail the scan.
			r.backend.logger.Warn("type index entry without document", "path", path)
			continue
		}
		*docs = append(*docs, doc)
	}
	return nil
}

// readDocument reads a document by key inside a transaction.
// Returns (nil, nil) when the key does not exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
