package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/capindex/ai/mock"
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index/hnsw"
	"github.com/poiesic/capindex/storage"
	badgerstore "github.com/poiesic/capindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	indexer  *Indexer
	repo     storage.DocumentRepository
	backend  *hnsw.Index
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := badgerstore.NewMemoryRepository(t)
	backend := hnsw.New(hnsw.WithSeed(1))
	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithEmbedder(embedder)

	ix, err := NewIndexer(repo, provider, backend, WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(ix.Release)

	return &fixture{indexer: ix, repo: repo, backend: backend, embedder: embedder}
}

func serverDoc(path string) *core.Document {
	return &core.Document{
		Path:        path,
		Type:        core.EntityTypeServer,
		Name:        "weather-api",
		Description: "Weather forecasts",
		Tags:        []string{"weather"},
		Enabled:     true,
		Tools: []core.Tool{
			{Name: "get_forecast", Description: "7 day forecast"},
		},
	}
}

func TestUpsertEmbedsAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := serverDoc("com.weather/api")
	require.NoError(t, f.indexer.Upsert(ctx, doc))

	stored, err := f.repo.GetDocument(ctx, "com.weather/api")
	require.NoError(t, err)
	assert.Len(t, stored.Vector, f.embedder.Dimension())
	assert.NotZero(t, stored.ContentHash)
	assert.Equal(t, 1, f.backend.Len())
	assert.Equal(t, 1, f.embedder.CallCount())
}

func TestUpsertRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.indexer.Upsert(ctx, &core.Document{Path: "io.test/unnamed", Type: core.EntityTypeServer})
	assert.ErrorIs(t, err, core.ErrMalformedEntity)

	err = f.indexer.Upsert(ctx, &core.Document{Name: "pathless", Type: core.EntityTypeServer})
	assert.ErrorIs(t, err, core.ErrMalformedEntity)

	assert.Equal(t, 0, f.backend.Len())
	assert.Equal(t, 0, f.embedder.CallCount())
}

func TestUpsertUnchangedContentSkipsEmbedding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))
	require.Equal(t, 1, f.embedder.CallCount())

	// Same embeddable content, different metadata
	again := serverDoc("com.weather/api")
	again.Meta = map[string]string{"region": "eu"}
	require.NoError(t, f.indexer.Upsert(ctx, again))

	assert.Equal(t, 1, f.embedder.CallCount())

	stored, err := f.repo.GetDocument(ctx, "com.weather/api")
	require.NoError(t, err)
	assert.Equal(t, "eu", stored.Meta["region"])
	assert.Len(t, stored.Vector, f.embedder.Dimension())
}

func TestUpsertChangedContentReembeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))

	changed := serverDoc("com.weather/api")
	changed.Description = "Weather forecasts and marine conditions"
	require.NoError(t, f.indexer.Upsert(ctx, changed))

	assert.Equal(t, 2, f.embedder.CallCount())
}

func TestUpsertEmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	err := f.indexer.Upsert(context.Background(), serverDoc("com.weather/api"))
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)

	// Nothing is stored when embedding fails
	_, err = f.repo.GetDocument(context.Background(), "com.weather/api")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}

	err := f.indexer.Upsert(context.Background(), serverDoc("com.weather/api"))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))
	require.NoError(t, f.indexer.Delete(ctx, "com.weather/api"))

	_, err := f.repo.GetDocument(ctx, "com.weather/api")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, f.backend.Len())
}

func TestDeleteMissing(t *testing.T) {
	f := newFixture(t)
	err := f.indexer.Delete(context.Background(), "io.test/absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConcurrentUpsertsDistinctPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := serverDoc(fmt.Sprintf("io.test/server-%02d", i))
			errs[i] = f.indexer.Upsert(ctx, doc)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	count, err := f.repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Equal(t, 10, f.backend.Len())
}

func TestReindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.indexer.Upsert(ctx, serverDoc(fmt.Sprintf("io.test/server-%d", i))))
	}
	f.embedder.Reset()

	stats, err := f.indexer.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 5, f.embedder.CallCount())
	assert.Equal(t, 5, f.backend.Len())
}

func TestReindexCountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.indexer.Upsert(ctx, serverDoc(fmt.Sprintf("io.test/server-%d", i))))
	}

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model not loaded")
	}

	stats, err := f.indexer.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Succeeded)
	assert.Equal(t, 3, stats.Failed)
}

func TestReindexDimensionMismatchCountsFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2}, nil
	}

	stats, err := f.indexer.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)

	// The mismatched vector is never written back
	stored, err := f.repo.GetDocument(ctx, "com.weather/api")
	require.NoError(t, err)
	assert.Len(t, stored.Vector, f.embedder.Dimension())
}

func TestReembedUsesLatestStoredDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))

	// A writer lands on the same path after a reindex run has taken
	// its initial listing; the newer record must survive the re-embed.
	newer := serverDoc("com.weather/api")
	newer.Description = "Weather forecasts and marine conditions"
	require.NoError(t, f.indexer.Upsert(ctx, newer))

	require.NoError(t, f.indexer.reembedDocument(ctx, "com.weather/api"))

	stored, err := f.repo.GetDocument(ctx, "com.weather/api")
	require.NoError(t, err)
	assert.Equal(t, "Weather forecasts and marine conditions", stored.Description)

	want, err := f.embedder.EmbedText(ctx, stored.EmbeddableText())
	require.NoError(t, err)
	assert.Equal(t, want, stored.Vector)
}

func TestReembedSkipsDeletedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.indexer.Upsert(ctx, serverDoc("com.weather/api")))
	require.NoError(t, f.indexer.Delete(ctx, "com.weather/api"))

	require.NoError(t, f.indexer.reembedDocument(ctx, "com.weather/api"))

	_, err := f.repo.GetDocument(ctx, "com.weather/api")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReindexEmpty(t *testing.T) {
	f := newFixture(t)

	stats, err := f.indexer.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestNewIndexerValidation(t *testing.T) {
	repo := badgerstore.NewMemoryRepository(t)
	provider := mock.NewMockProvider()
	backend := hnsw.New()

	_, err := NewIndexer(nil, provider, backend)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewIndexer(repo, nil, backend)
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewIndexer(repo, provider, nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}
