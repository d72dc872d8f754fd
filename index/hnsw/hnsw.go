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


// Package hnsw implements an in-process Hierarchical Navigable Small World
// graph for approximate nearest-neighbor search over document embeddings.
//
// The graph lives entirely in memory and is rebuilt from the document
// repository at startup. Deletes are tombstones: the node stays in the
// graph for traversal but is excluded from results. A collection that
// churns heavily should be rebuilt periodically via Reindex.
package hnsw

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/poiesic/capindex/index"
)

const (
	// DefaultM is the number of bidirectional links created per node.
	DefaultM = 16

	// DefaultEfConstruction is the candidate list size during insertion.
	DefaultEfConstruction = 128

	// DefaultEfSearch is the candidate list size during queries.
	DefaultEfSearch = 64
)

type node struct {
	id      int
	path    string
	vector  []float32
	level   int
	deleted bool
	// links[l] holds neighbor ids at layer l, for l in [0, level].
	links [][]int
}

// Index is a thread-safe HNSW graph implementing index.Backend.
type Index struct {
	mu sync.RWMutex

	m              int
	efConstruction int
	efSearch       int
	levelMult      float64
	rng            *rand.Rand

	nodes    []*node
	byPath   map[string]int
	entry    int
	maxLevel int
	live     int
}

var _ index.Backend = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithM sets the per-node link count.
func WithM(m int) Option {
	return func(ix *Index) {
		if m > 0 {
			ix.m = m
		}
	}
}

// WithEfConstruction sets the candidate list size used while inserting.
func WithEfConstruction(ef int) Option {
	return func(ix *Index) {
		if ef > 0 {
			ix.efConstruction = ef
		}
	}
}

// WithEfSearch sets the candidate list size used while querying.
// Queries always use at least k candidates.
func WithEfSearch(ef int) Option {
	return func(ix *Index) {
		if ef > 0 {
			ix.efSearch = ef
		}
	}
}

// WithSeed fixes the level-assignment RNG, for reproducible graphs in tests.
func WithSeed(seed int64) Option {
	return func(ix *Index) {
		ix.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates an empty HNSW index.
func New(opts ...Option) *Index {
	ix := &Index{
		m:              DefaultM,
		efConstruction: DefaultEfConstruction,
		efSearch:       DefaultEfSearch,
		byPath:         make(map[string]int),
		entry:          -1,
		rng:            rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.levelMult = 1.0 / math.Log(float64(ix.m))
	return ix
}

// Upsert inserts a vector for a path, replacing any previous entry.
// A replaced entry is tombstoned and a fresh node inserted, so stale
// vectors never surface in results.
func (ix *Index) Upsert(path string, vector []float32) error {
	if len(vector) == 0 {
		return index.ErrEmptyVector
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if id, ok := ix.byPath[path]; ok {
		old := ix.nodes[id]
		if !old.deleted && slices.Equal(old.vector, vector) {
			return nil
		}
		old.deleted = true
		ix.live--
	}

	ix.insert(path, slices.Clone(vector))
	return nil
}

// Delete tombstones the entry for a path. Unknown paths are ignored.
func (ix *Index) Delete(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id, ok := ix.byPath[path]
	if !ok {
		return nil
	}
	if !ix.nodes[id].deleted {
		ix.nodes[id].deleted = true
		ix.live--
	}
	delete(ix.byPath, path)
	return nil
}

// Search returns up to k live entries most similar to the query vector,
// ordered by similarity descending with ties broken by path ascending.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]index.Match, error) {
	if len(vector) == 0 {
		return nil, index.ErrEmptyVector
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.entry < 0 || ix.live == 0 {
		return nil, nil
	}

	ef := ix.efSearch
	if ef < k {
		ef = k
	}
	// Tombstones occupy result slots during traversal; widen the
	// candidate list so live entries are not crowded out.
	if dead := len(ix.nodes) - ix.live; dead > 0 {
		ef += dead
	}

	cur := ix.greedyDescend(vector, ix.entry, ix.maxLevel, 1)
	results := ix.searchLayer(vector, cur, ef, 0)

	matches := make([]index.Match, 0, results.Len())
	for _, item := range *results {
		n := ix.nodes[item.id]
		if n.deleted {
			continue
		}
		matches = append(matches, index.Match{
			Path:  n.path,
			Score: 1 - item.dist,
		})
	}

	index.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of live entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.live
}

// insert adds a new node to the graph. Caller holds the write lock.
func (ix *Index) insert(path string, vector []float32) {
	level := ix.randomLevel()
	n := &node{
		id:     len(ix.nodes),
		path:   path,
		vector: vector,
		level:  level,
		links:  make([][]int, level+1),
	}
	ix.nodes = append(ix.nodes, n)
	ix.byPath[path] = n.id
	ix.live++

	if ix.entry < 0 {
		ix.entry = n.id
		ix.maxLevel = level
		return
	}

	cur := ix.greedyDescend(vector, ix.entry, ix.maxLevel, level+1)

	top := level
	if top > ix.maxLevel {
		top = ix.maxLevel
	}
	for layer := top; layer >= 0; layer-- {
		results := ix.searchLayer(vector, cur, ix.efConstruction, layer)
		neighbors := ix.selectNeighbors(results, ix.maxLinks(layer))
		n.links[layer] = neighbors

		for _, nb := range neighbors {
			ix.linkBack(nb, n.id, layer)
		}
		if len(neighbors) > 0 {
			cur = neighbors[0]
		}
	}

	if level > ix.maxLevel {
		ix.maxLevel = level
		ix.entry = n.id
	}
}

// greedyDescend walks from entry at fromLayer down to toLayer (exclusive
// of layers below it), moving to the closest neighbor at each layer.
func (ix *Index) greedyDescend(vector []float32, entry, fromLayer, toLayer int) int {
	cur := entry
	curDist := ix.distance(vector, cur)
	for layer := fromLayer; layer >= toLayer; layer-- {
		for {
			improved := false
			for _, nb := range ix.linksAt(cur, layer) {
				if d := ix.distance(vector, nb); d < curDist {
					cur, curDist = nb, d
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}
	return cur
}

// searchLayer performs a best-first beam search at a single layer,
// returning up to ef candidates as a max-heap (farthest on top).
func (ix *Index) searchLayer(vector []float32, entry, ef, layer int) *maxHeap {
	entryDist := ix.distance(vector, entry)
	visited := map[int]struct{}{entry: {}}
	candidates := &minHeap{{id: entry, dist: entryDist}}
	results := &maxHeap{{id: entry, dist: entryDist}}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(heapItem)
		if results.Len() >= ef && c.dist > (*results)[0].dist {
			break
		}
		for _, nb := range ix.linksAt(c.id, layer) {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			d := ix.distance(vector, nb)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, heapItem{id: nb, dist: d})
				heap.Push(results, heapItem{id: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}
	return results
}

// selectNeighbors picks the closest limit candidates, nearest first.
func (ix *Index) selectNeighbors(results *maxHeap, limit int) []int {
	items := slices.Clone(*results)
	slices.SortFunc(items, func(a, b heapItem) int {
		if a.dist < b.dist {
			return -1
		}
		if a.dist > b.dist {
			return 1
		}
		return 0
	})
	if len(items) > limit {
		items = items[:limit]
	}
	neighbors := make([]int, len(items))
	for i, item := range items {
		neighbors[i] = item.id
	}
	return neighbors
}

// linkBack adds a reverse link from nb to id at the given layer,
// pruning nb's link list back to its cap by keeping the closest.
func (ix *Index) linkBack(nb, id, layer int) {
	n := ix.nodes[nb]
	n.links[layer] = append(n.links[layer], id)

	limit := ix.maxLinks(layer)
	if len(n.links[layer]) <= limit {
		return
	}
	slices.SortFunc(n.links[layer], func(a, b int) int {
		da := index.CosineSimilarity(n.vector, ix.nodes[a].vector)
		db := index.CosineSimilarity(n.vector, ix.nodes[b].vector)
		if da > db {
			return -1
		}
		if da < db {
			return 1
		}
		return 0
	})
	n.links[layer] = n.links[layer][:limit]
}

func (ix *Index) linksAt(id, layer int) []int {
	n := ix.nodes[id]
	if layer > n.level {
		return nil
	}
	return n.links[layer]
}

func (ix *Index) distance(vector []float32, id int) float32 {
	return 1 - index.CosineSimilarity(vector, ix.nodes[id].vector)
}

func (ix *Index) maxLinks(layer int) int {
	if layer == 0 {
		return ix.m * 2
	}
	return ix.m
}

func (ix *Index) randomLevel() int {
	u := ix.rng.Float64()
	for u == 0 {
		u = ix.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * ix.levelMult))
}
