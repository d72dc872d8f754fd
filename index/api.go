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


package index

import (
	"context"
	"math"
	"slices"
)

// Match is a single vector search hit.
type Match struct {
	Path  string
	Score float32
}

// Backend performs nearest-neighbor search over document embeddings.
// Implementations must be thread-safe. Search returns up to k matches
// ordered by similarity descending; equal scores order by path ascending
// so results are stable across backends.
type Backend interface {
	// Upsert adds or replaces the vector stored for a path.
	Upsert(path string, vector []float32) error

	// Delete removes the vector stored for a path.
	// Deleting an unknown path is not an error.
	Delete(path string) error

	// Search returns the k most similar entries to the query vector.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Len returns the number of searchable entries.
	Len() int
}

// SortMatches orders matches by score descending, ties by path ascending.
func SortMatches(matches []Match) {
	slices.SortFunc(matches, CompareMatches)
}

// CompareMatches is the canonical match ordering: higher score first,
// equal scores break toward the lexicographically smaller path.
func CompareMatches(a, b Match) int {
	if a.Score > b.Score {
		return -1
	}
	if a.Score < b.Score {
		return 1
	}
	if a.Path < b.Path {
		return -1
	}
	if a.Path > b.Path {
		return 1
	}
	return 0
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when either vector has zero magnitude or lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
