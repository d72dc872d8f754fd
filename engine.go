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


package capindex

import (
	"context"
	"log/slog"

	"github.com/poiesic/capindex/ai"
	"github.com/poiesic/capindex/ai/openai"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index"
	"github.com/poiesic/capindex/index/bruteforce"
	"github.com/poiesic/capindex/index/hnsw"
	"github.com/poiesic/capindex/indexer"
	"github.com/poiesic/capindex/search"
	"github.com/poiesic/capindex/storage"
	badgerstore "github.com/poiesic/capindex/storage/badger"
)

// Engine is the assembled search engine: document store, embedding
// provider, vector search backend, indexer, and searcher wired together.
type Engine struct {
	backend  *badgerstore.Backend
	repo     storage.DocumentRepository
	provider ai.Provider
	vectors  index.Backend
	indexer  *indexer.Indexer
	searcher *search.Searcher
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.Provider
	logger   *slog.Logger
}

// WithProvider substitutes the embedding provider the config would
// otherwise construct. Used by embedders other than the OpenAI-compatible
// default, and by tests.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithEngineLogger sets a custom logger.
// Default is slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewEngine opens the store and wires up the engine per the config.
// When the HNSW backend is selected, every stored embedding is loaded
// into the graph before NewEngine returns.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badgerstore.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, err
	}

	repo := badgerstore.NewDocumentRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.aiConfig())
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	vectors, err := buildVectorBackend(cfg, repo)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	ix, err := indexer.NewIndexer(repo, provider, vectors,
		indexer.WithLogger(options.logger))
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(repo, vectors, provider,
		search.WithLogger(options.logger))
	if err != nil {
		ix.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:  backend,
		repo:     repo,
		provider: provider,
		vectors:  vectors,
		indexer:  ix,
		searcher: searcher,
		logger:   options.logger,
	}, nil
}

// buildVectorBackend constructs the configured vector search variant.
// The brute-force variant reads the repository directly; the HNSW
// variant is populated from stored embeddings here.
func buildVectorBackend(cfg *Config, repo storage.DocumentRepository) (index.Backend, error) {
	if cfg.Index.Backend == BackendBruteForce {
		return bruteforce.New(repo), nil
	}

	graph := hnsw.New(
		hnsw.WithM(cfg.Index.M),
		hnsw.WithEfConstruction(cfg.Index.EfConstruction),
		hnsw.WithEfSearch(cfg.Index.EfSearch),
	)

	docs, err := repo.ListDocuments(context.Background())
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		if err := graph.Upsert(doc.Path, doc.Vector); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// Upsert indexes or re-indexes a single entity record.
func (e *Engine) Upsert(ctx context.Context, doc *core.Document) error {
	return e.indexer.Upsert(ctx, doc)
}

// Delete removes an entity from the engine by path.
func (e *Engine) Delete(ctx context.Context, path string) error {
	return e.indexer.Delete(ctx, path)
}

// Search runs a hybrid query and returns grouped, ranked results.
func (e *Engine) Search(ctx context.Context, query core.SearchQuery) (*core.SearchResponse, error) {
	return e.searcher.Search(ctx, query)
}

// Reindex re-embeds every stored document.
func (e *Engine) Reindex(ctx context.Context) (indexer.ReindexStats, error) {
	return e.indexer.Reindex(ctx)
}

// Repository exposes the underlying document store.
func (e *Engine) Repository() storage.DocumentRepository {
	return e.repo
}

// Indexer exposes the underlying document indexer, for callers that
// need its options (progress output, pool sizing) directly.
func (e *Engine) Indexer() *indexer.Indexer {
	return e.indexer
}

// Close releases the provider, worker pools, and the store.
func (e *Engine) Close() error {
	e.indexer.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.repo.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
