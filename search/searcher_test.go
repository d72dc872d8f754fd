package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/capindex/ai/mock"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index"
	"github.com/poiesic/capindex/index/bruteforce"
	"github.com/poiesic/capindex/index/hnsw"
	"github.com/poiesic/capindex/indexer"
	"github.com/poiesic/capindex/storage"
	badgerstore "github.com/poiesic/capindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	repo     storage.DocumentRepository
	backend  *hnsw.Index
	embedder *mock.MockEmbedder
	indexer  *indexer.Indexer
	searcher *Searcher
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	repo := badgerstore.NewMemoryRepository(t)
	backend := hnsw.New(hnsw.WithSeed(5))
	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithEmbedder(embedder)

	ix, err := indexer.NewIndexer(repo, provider, backend)
	require.NoError(t, err)
	t.Cleanup(ix.Release)

	s, err := NewSearcher(repo, backend, provider)
	require.NoError(t, err)

	return &searchFixture{
		repo:     repo,
		backend:  backend,
		embedder: embedder,
		indexer:  ix,
		searcher: s,
	}
}

func (f *searchFixture) upsert(t *testing.T, doc *core.Document) {
	t.Helper()
	require.NoError(t, f.indexer.Upsert(context.Background(), doc))
}

func contextSevenDoc() *core.Document {
	return &core.Document{
		Path:        "com.context7/docs",
		Type:        core.EntityTypeServer,
		Name:        "context7",
		Description: "documentation search",
		Enabled:     true,
		Tools: []core.Tool{
			{Name: "query-docs", Description: "search library documentation", InputSchema: `{"type":"object"}`},
		},
	}
}

func weatherDoc() *core.Document {
	return &core.Document{
		Path:        "com.weather/api",
		Type:        core.EntityTypeServer,
		Name:        "weather-api",
		Description: "current weather data",
		Enabled:     true,
		Tools: []core.Tool{
			{Name: "get_forecast", Description: "7 day forecast"},
		},
	}
}

func TestPathMatchOutranksSemanticNeighbor(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, weatherDoc())
	f.upsert(t, contextSevenDoc())

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "context7"})
	require.NoError(t, err)
	require.Len(t, resp.Servers, 2)

	assert.Equal(t, "com.context7/docs", resp.Servers[0].Path)
	assert.Greater(t, resp.Servers[0].RelevanceScore, resp.Servers[1].RelevanceScore)

	// Relevance carries the path (+5.0) and name (+3.0) boosts scaled
	// by 0.1 on top of the cosine similarity
	embedding, err := f.embedder.EmbedText(ctx, "context7")
	require.NoError(t, err)
	matches, err := f.backend.Search(ctx, embedding, 10)
	require.NoError(t, err)

	var vectorScore float32
	for _, m := range matches {
		if m.Path == "com.context7/docs" {
			vectorScore = m.Score
		}
	}
	assert.InDelta(t, vectorScore+0.8, resp.Servers[0].RelevanceScore, 1e-4)
}

func TestRelevanceMonotonicInTextBoost(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	// Identical embeddable content, so both share one vector score;
	// only one path contains the query token
	base := func(path string) *core.Document {
		return &core.Document{
			Path:        path,
			Type:        core.EntityTypeServer,
			Name:        "files",
			Description: "filesystem access",
			Enabled:     true,
		}
	}
	f.upsert(t, base("io.plain/fs"))
	f.upsert(t, base("io.backup/fs"))

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "backup files"})
	require.NoError(t, err)
	require.Len(t, resp.Servers, 2)

	assert.Equal(t, "io.backup/fs", resp.Servers[0].Path)
	assert.Greater(t, resp.Servers[0].RelevanceScore, resp.Servers[1].RelevanceScore)
	// The gap is exactly the path boost scaled by 0.1
	assert.InDelta(t, 0.5, resp.Servers[0].RelevanceScore-resp.Servers[1].RelevanceScore, 1e-5)
}

func TestEqualScoresOrderByPath(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	base := func(path string) *core.Document {
		return &core.Document{
			Path:        path,
			Type:        core.EntityTypeServer,
			Name:        "metrics",
			Description: "metrics collection",
			Enabled:     true,
		}
	}
	f.upsert(t, base("io.zeta/metrics"))
	f.upsert(t, base("io.alpha/metrics"))

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "metrics"})
	require.NoError(t, err)
	require.Len(t, resp.Servers, 2)

	assert.InDelta(t, resp.Servers[0].RelevanceScore, resp.Servers[1].RelevanceScore, 1e-6)
	assert.Equal(t, "io.alpha/metrics", resp.Servers[0].Path)
	assert.Equal(t, "io.zeta/metrics", resp.Servers[1].Path)
}

func TestPerTypeTruncationAndTotals(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.upsert(t, &core.Document{
			Path:        fmt.Sprintf("io.logging/sink-%d", i),
			Type:        core.EntityTypeServer,
			Name:        "logging",
			Description: "log aggregation",
			Enabled:     true,
		})
	}

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "logging"})
	require.NoError(t, err)

	assert.Len(t, resp.Servers, core.DefaultMaxResultsPerType)
	assert.Equal(t, 5, resp.TotalServers)

	// Equal relevance at the truncation boundary resolves by path order
	assert.Equal(t, "io.logging/sink-0", resp.Servers[0].Path)
	assert.Equal(t, "io.logging/sink-1", resp.Servers[1].Path)
	assert.Equal(t, "io.logging/sink-2", resp.Servers[2].Path)
}

func TestToolResults(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())
	f.upsert(t, weatherDoc())

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "documentation"})
	require.NoError(t, err)

	require.Len(t, resp.Tools, 1)
	tool := resp.Tools[0]
	assert.Equal(t, "com.context7/docs", tool.ServerPath)
	assert.Equal(t, "context7", tool.ServerName)
	assert.Equal(t, "query-docs", tool.ToolName)
	assert.JSONEq(t, `{"type":"object"}`, string(tool.InputSchema))
	assert.Equal(t, 1, resp.TotalTools)

	// The server hit carries the matched tool without its schema,
	// at the parent's relevance
	var serverHit *core.ServerHit
	for i := range resp.Servers {
		if resp.Servers[i].Path == "com.context7/docs" {
			serverHit = &resp.Servers[i]
		}
	}
	require.NotNil(t, serverHit)
	require.Len(t, serverHit.MatchingTools, 1)
	assert.Equal(t, "query-docs", serverHit.MatchingTools[0].Name)
	assert.InDelta(t, serverHit.RelevanceScore, serverHit.MatchingTools[0].RelevanceScore, 1e-6)
}

func TestTypeFiltering(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())
	f.upsert(t, &core.Document{
		Path:        "io.agents/librarian",
		Type:        core.EntityTypeAgent,
		Name:        "librarian",
		Description: "documentation and reference lookup",
		Enabled:     true,
		Skills:      []core.Skill{{Name: "lookup", Description: "find documentation"}},
	})

	resp, err := f.searcher.Search(ctx, core.SearchQuery{
		Text:  "documentation",
		Types: []core.EntityType{core.EntityTypeAgent},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Servers)
	assert.Empty(t, resp.Tools)
	assert.Zero(t, resp.TotalServers)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "io.agents/librarian", resp.Agents[0].Path)
	assert.Equal(t, []string{"lookup"}, resp.Agents[0].Skills)
	assert.Equal(t, 1, resp.TotalAgents)
}

func TestDeleteRemovesFromResults(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())
	f.upsert(t, weatherDoc())

	before, err := f.searcher.Search(ctx, core.SearchQuery{Text: "weather forecast"})
	require.NoError(t, err)

	var weatherBefore float32
	for _, hit := range before.Servers {
		if hit.Path == "com.weather/api" {
			weatherBefore = hit.RelevanceScore
		}
	}
	require.NotZero(t, weatherBefore)

	require.NoError(t, f.indexer.Delete(ctx, "com.context7/docs"))

	after, err := f.searcher.Search(ctx, core.SearchQuery{Text: "weather forecast"})
	require.NoError(t, err)
	require.Len(t, after.Servers, 1)
	assert.Equal(t, "com.weather/api", after.Servers[0].Path)
	// Deleting one entity leaves the other's score untouched
	assert.InDelta(t, weatherBefore, after.Servers[0].RelevanceScore, 1e-5)
}

func TestEmbeddingFailureDegradesToKeywordOnly(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())
	f.upsert(t, weatherDoc())

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("context deadline exceeded")
	}

	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "context7"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.Len(t, resp.Servers, 1)
	assert.Equal(t, "com.context7/docs", resp.Servers[0].Path)
	// Keyword boost only: (5.0 path + 3.0 name) * 0.1
	assert.InDelta(t, 0.8, resp.Servers[0].RelevanceScore, 1e-6)
}

func TestDegradedQueryWithNoKeywordMatches(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	// Nothing but stop words and short tokens survives tokenization
	resp, err := f.searcher.Search(ctx, core.SearchQuery{Text: "is it a to do"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Servers)
	assert.Zero(t, resp.TotalServers)
}

func TestEmptyQueryText(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.searcher.Search(context.Background(), core.SearchQuery{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

// failingRepository simulates an unreachable store.
type failingRepository struct{}

var errStoreDown = errors.New("store unreachable")

func (f *failingRepository) PutDocument(ctx context.Context, doc *core.Document) error {
	return errStoreDown
}

func (f *failingRepository) GetDocument(ctx context.Context, path string) (*core.Document, error) {
	return nil, errStoreDown
}

func (f *failingRepository) DeleteDocument(ctx context.Context, path string) error {
	return errStoreDown
}

func (f *failingRepository) ListDocuments(ctx context.Context, types ...core.EntityType) ([]*core.Document, error) {
	return nil, errStoreDown
}

func (f *failingRepository) CountDocuments(ctx context.Context) (int, error) {
	return 0, errStoreDown
}

func (f *failingRepository) Close() error { return nil }

func TestStoreFailureFailsQuery(t *testing.T) {
	repo := &failingRepository{}
	s, err := NewSearcher(repo, bruteforce.New(repo), mock.NewMockProvider())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), core.SearchQuery{Text: "anything"})
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

// recordingMonitor captures callbacks for assertions.
type recordingMonitor struct {
	started  bool
	vector   []index.Match
	scanned  int
	matched  int
	degraded bool
	finished *core.SearchResponse
}

func (r *recordingMonitor) Start(_ string)                    { r.started = true }
func (r *recordingMonitor) AfterVectorSearch(m []index.Match) { r.vector = m }
func (r *recordingMonitor) AfterKeywordScan(s, m int)         { r.scanned, r.matched = s, m }
func (r *recordingMonitor) DegradedToKeywordOnly(_ error)     { r.degraded = true }
func (r *recordingMonitor) Finish(resp *core.SearchResponse)  { r.finished = resp }

func TestSearchWithMonitor(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	f.upsert(t, contextSevenDoc())
	f.upsert(t, weatherDoc())

	monitor := &recordingMonitor{}
	resp, err := f.searcher.SearchWithMonitor(ctx, core.SearchQuery{Text: "context7"}, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.NotEmpty(t, monitor.vector)
	assert.Equal(t, 2, monitor.scanned)
	assert.Equal(t, 1, monitor.matched)
	assert.False(t, monitor.degraded)
	assert.Same(t, resp, monitor.finished)
}
