// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/capindex/ai"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index"
	"github.com/poiesic/capindex/storage"
)

// Indexer maintains the document store and the vector search backend in
// lockstep. Writes to the same path are serialized; independent paths
// proceed in parallel.
type Indexer struct {
	repository storage.DocumentRepository
	embedder   ai.Embedder
	backend    index.Backend
	pool       *ants.Pool
	locks      *pathLocks
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the worker pool size used by Reindex.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}

		if ix.pool != nil {
			ix.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// WithProgressWriter sets the destination for Reindex progress output.
// Default is no progress output.
func WithProgressWriter(w io.Writer) Option {
	return func(ix *Indexer) error {
		ix.progress = w
		return nil
	}
}

// NewIndexer creates a new document indexer.
func NewIndexer(
	repository storage.DocumentRepository,
	provider ai.Provider,
	backend index.Backend,
	opts ...Option,
) (*Indexer, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if backend == nil {
		return nil, ErrBackendRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		repository: repository,
		embedder:   provider.Embedder(),
		backend:    backend,
		pool:       pool,
		locks:      newPathLocks(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}

	return ix, nil
}

// Upsert validates, embeds, and stores a document, then updates the
// vector backend. The embedding step is skipped when the document's
// embeddable text is unchanged from the stored version, so re-upserting
// identical content is cheap and idempotent.
//
// Storage and index updates complete before Upsert returns, so a search
// issued afterward in the same process observes the document.
func (ix *Indexer) Upsert(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		ix.logger.Warn("rejecting malformed document",
			"path", safePath(doc), "err", err)
		return err
	}

	text := doc.EmbeddableText()
	hash := core.IDFromContent(text)

	ix.locks.lock(doc.Path)
	defer ix.locks.unlock(doc.Path)

	existing, err := ix.repository.GetDocument(ctx, doc.Path)
	if err != nil && err != storage.ErrNotFound {
		return err
	}

	if existing != nil && existing.ContentHash == hash && len(existing.Vector) > 0 {
		// Content unchanged; carry the stored embedding forward
		doc.Vector = existing.Vector
	} else {
		vector, err := ix.embedder.EmbedText(ctx, text)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
		}
		if want := ix.embedder.Dimension(); len(vector) != want {
			return fmt.Errorf("%w: got %d, provider reports %d",
				core.ErrDimensionMismatch, len(vector), want)
		}
		doc.Vector = vector
	}
	doc.ContentHash = hash

	if err := ix.repository.PutDocument(ctx, doc); err != nil {
		return err
	}
	if err := ix.backend.Upsert(doc.Path, doc.Vector); err != nil {
		return err
	}

	ix.logger.Debug("document indexed", "path", doc.Path, "type", doc.Type)
	return nil
}

// Delete removes a document from the store and the vector backend.
// Returns storage.ErrNotFound if no document exists at the path.
func (ix *Indexer) Delete(ctx context.Context, path string) error {
	ix.locks.lock(path)
	defer ix.locks.unlock(path)

	if err := ix.repository.DeleteDocument(ctx, path); err != nil {
		return err
	}
	if err := ix.backend.Delete(path); err != nil {
		return err
	}

	ix.logger.Debug("document removed", "path", path)
	return nil
}

// SetProgressWriter redirects Reindex progress output.
// A nil writer silences it.
func (ix *Indexer) SetProgressWriter(w io.Writer) {
	ix.progress = w
}

// Release releases the worker pool.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

func safePath(doc *core.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Path
}
