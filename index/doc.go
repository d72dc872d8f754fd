// Package index defines the vector search backend contract and its
// implementations' shared ordering rules.
//
// Two interchangeable backends implement the Backend interface:
//
//   - index/bruteforce: exact cosine scan over every stored embedding.
//     Simple and always correct; cost grows linearly with the collection.
//   - index/hnsw: approximate nearest-neighbor graph held in memory.
//     Sub-linear queries on larger collections at a small recall cost.
//
// Both backends honor the same result contract: similarity descending,
// with equal scores ordered by path ascending. Callers can switch
// between them through configuration without observable ordering
// changes on identical score sets.
package index
