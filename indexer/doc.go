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


// Package indexer writes documents into the store and the vector search
// backend as a single logical operation.
//
// Upsert validates the document, builds its embeddable text, and embeds
// it through the configured AI provider. A content hash of the embeddable
// text short-circuits re-embedding when nothing the embedding depends on
// has changed, so callers can re-submit their full registry cheaply.
//
// Writes to the same path are serialized through per-path locks; the
// storage write itself is transactional, so concurrent upserts against
// one path resolve to one complete document.
//
// Reindex re-embeds the whole collection on a worker pool, for use after
// switching embedding models or rebuilding an index from disk.
package indexer
