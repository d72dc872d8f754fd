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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/capindex/ai"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index"
	"github.com/poiesic/capindex/storage"
)

// textBoostWeight scales the keyword boost before it is added to the
// vector score. Keyword matches nudge ranking; they never dominate a
// strong semantic mismatch.
const textBoostWeight = 0.1

// fetchMultiplier widens the vector candidate pool past the per-type
// limit so the merge step has enough candidates for every group.
const fetchMultiplier = 10

// Searcher provides hybrid semantic and keyword search over the
// capability registry.
type Searcher struct {
	repository storage.DocumentRepository
	backend    index.Backend
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	repository storage.DocumentRepository,
	backend index.Backend,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository: repository,
		backend:    backend,
		embedder:   provider.Embedder(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// scoredHit is a merged per-document score before aggregation.
type scoredHit struct {
	doc         *core.Document
	vectorScore float32
	textBoost   float32
	relevance   float32
	matched     []string
}

// Search runs a hybrid query and returns grouped, ranked results.
func (s *Searcher) Search(ctx context.Context, query core.SearchQuery) (*core.SearchResponse, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor runs a hybrid query with monitoring callbacks at
// each stage.
//
// The vector pass and the keyword pass run concurrently and are merged
// by path. If the embedding provider is unavailable the response is
// ranked by keyword boost alone and flagged Degraded; if the store is
// unreachable the whole query fails, since both passes need it.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query core.SearchQuery, monitor SearchMonitor) (*core.SearchResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query.Text)
	tokens := tokenize(query.Text)

	var (
		vectorScores map[string]float32
		degraded     bool
		docs         []*core.Document
		textMatches  map[string]textMatch
	)

	g, gctx := errgroup.WithContext(ctx)

	// Vector pass: embed the query and rank by cosine similarity.
	// Embedding failure degrades the query instead of failing it.
	g.Go(func() error {
		embedding, err := s.embedder.EmbedText(gctx, query.Text)
		if err != nil {
			s.logger.Warn("embedding unavailable, degrading to keyword-only ranking",
				"query", query.Text, "err", err)
			monitor.DegradedToKeywordOnly(err)
			degraded = true
			return nil
		}

		matches, err := s.backend.Search(gctx, embedding, query.Limit()*fetchMultiplier)
		if err != nil {
			s.logger.Error("vector search failed", "err", err)
			return fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
		}
		monitor.AfterVectorSearch(matches)

		vectorScores = make(map[string]float32, len(matches))
		for _, match := range matches {
			vectorScores[match.Path] = match.Score
		}
		return nil
	})

	// Keyword pass: scan stored documents for literal token matches.
	g.Go(func() error {
		var err error
		docs, err = s.repository.ListDocuments(gctx, s.entityTypes(query)...)
		if err != nil {
			s.logger.Error("document scan failed", "err", err)
			return fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
		}

		matched := 0
		textMatches = make(map[string]textMatch, len(docs))
		for _, doc := range docs {
			m := matchDocument(tokens, doc)
			if m.boost > 0 {
				matched++
			}
			textMatches[doc.Path] = m
		}
		monitor.AfterKeywordScan(len(docs), matched)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge the two passes by path
	hits := make([]scoredHit, 0, len(vectorScores))
	for _, doc := range docs {
		m := textMatches[doc.Path]
		vectorScore, inVector := vectorScores[doc.Path]
		if !inVector && m.boost == 0 {
			continue
		}
		hits = append(hits, scoredHit{
			doc:         doc,
			vectorScore: vectorScore,
			textBoost:   m.boost,
			relevance:   vectorScore + m.boost*textBoostWeight,
			matched:     m.matched,
		})
	}

	response := buildResponse(query, hits, degraded)
	monitor.Finish(response)

	s.logger.Debug("search complete",
		"query", query.Text,
		"servers", response.TotalServers,
		"tools", response.TotalTools,
		"agents", response.TotalAgents,
		"degraded", response.Degraded)

	return response, nil
}

// entityTypes maps the requested result groups to the document types
// that must be scanned. Tool results come from server documents.
func (s *Searcher) entityTypes(query core.SearchQuery) []core.EntityType {
	var types []core.EntityType
	if query.WantsType(core.EntityTypeServer) || query.WantsType(core.EntityTypeTool) {
		types = append(types, core.EntityTypeServer)
	}
	if query.WantsType(core.EntityTypeAgent) {
		types = append(types, core.EntityTypeAgent)
	}
	return types
}
