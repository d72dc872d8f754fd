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
	"sync"
	"time"

	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/storage"
)

const reindexReportInterval = 25

// ReindexStats summarizes a bulk reindexing run.
type ReindexStats struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Reindex re-embeds every stored document and rebuilds the vector backend
// entries. Documents are processed concurrently on the worker pool.
// Individual failures are logged and counted but do not abort the run;
// context cancellation does.
func (ix *Indexer) Reindex(ctx context.Context) (ReindexStats, error) {
	start := time.Now()

	docs, err := ix.repository.ListDocuments(ctx)
	if err != nil {
		return ReindexStats{}, err
	}

	stats := ReindexStats{Total: len(docs)}
	if len(docs) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	tracker := newProgressTracker(ix.progress, len(docs), reindexReportInterval)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		runErr error
	)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		path := doc.Path
		wg.Add(1)
		submitErr := ix.pool.Submit(func() {
			defer wg.Done()
			defer tracker.increment(1)

			if err := ix.reembedDocument(ctx, path); err != nil {
				ix.logger.Error("reindex failed for document",
					"path", path, "err", err)
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			stats.Succeeded++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			runErr = submitErr
			break
		}
	}

	wg.Wait()
	tracker.finish()

	stats.Duration = time.Since(start)
	ix.logger.Info("reindex complete",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"duration", stats.Duration)

	return stats, runErr
}

// reembedDocument embeds a document from scratch and writes it back.
// The document is re-read under the path lock so an upsert that landed
// after the run's initial listing is never overwritten with stale data.
func (ix *Indexer) reembedDocument(ctx context.Context, path string) error {
	ix.locks.lock(path)
	defer ix.locks.unlock(path)

	doc, err := ix.repository.GetDocument(ctx, path)
	if err != nil {
		if err == storage.ErrNotFound {
			// Deleted since the run started; nothing to re-embed
			return nil
		}
		return err
	}

	text := doc.EmbeddableText()

	vector, err := ix.embedder.EmbedText(ctx, text)
	if err != nil {
		return err
	}
	if want := ix.embedder.Dimension(); len(vector) != want {
		return fmt.Errorf("%w: got %d, provider reports %d",
			core.ErrDimensionMismatch, len(vector), want)
	}

	doc.Vector = vector
	doc.ContentHash = core.IDFromContent(text)

	if err := ix.repository.PutDocument(ctx, doc); err != nil {
		return err
	}
	return ix.backend.Upsert(doc.Path, doc.Vector)
}
