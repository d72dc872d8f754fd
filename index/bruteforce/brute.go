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


// Package bruteforce implements exact vector search by scanning every
// stored embedding. It holds no state of its own: queries read the
// document repository directly, so the index is never stale.
package bruteforce

import (
	"context"

	"github.com/poiesic/capindex/index"
	"github.com/poiesic/capindex/storage"
)

// Index is an exact-scan vector search backend over a document repository.
type Index struct {
	repository storage.DocumentRepository
}

var _ index.Backend = (*Index)(nil)

// New creates a brute-force index backed by the given repository.
func New(repository storage.DocumentRepository) *Index {
	return &Index{repository: repository}
}

// Upsert is a no-op; queries always read the repository.
func (ix *Index) Upsert(path string, vector []float32) error {
	return nil
}

// Delete is a no-op; queries always read the repository.
func (ix *Index) Delete(path string) error {
	return nil
}

// Search scans every embedded document and returns the k most similar,
// ordered by similarity descending with ties broken by path ascending.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]index.Match, error) {
	if len(vector) == 0 {
		return nil, index.ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	docs, err := ix.repository.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]index.Match, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		matches = append(matches, index.Match{
			Path:  doc.Path,
			Score: index.CosineSimilarity(vector, doc.Vector),
		})
	}

	index.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of embedded documents. Documents without a
// vector are not searchable and are not counted.
func (ix *Index) Len() int {
	docs, err := ix.repository.ListDocuments(context.Background())
	if err != nil {
		return 0
	}
	count := 0
	for _, doc := range docs {
		if len(doc.Vector) > 0 {
			count++
		}
	}
	return count
}
