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


// Package search runs hybrid queries over the capability registry.
//
// A query is answered by two concurrent passes over the same collection:
//   - Vector pass: the query text is embedded and ranked by cosine
//     similarity through the configured vector search backend.
//   - Keyword pass: the query is tokenized and matched literally against
//     each document's path, name, description, tags, and tool or skill
//     fields, producing an additive boost.
//
// The passes merge by document path; a document's relevance is its
// vector score plus a tenth of its keyword boost, so literal matches
// nudge ranking without overturning semantic distance. Results group by
// entity type, each group sorted by relevance descending with ties
// broken by ascending path and truncated to the per-type limit.
//
// When the embedding provider is unreachable the query degrades to
// keyword-only ranking and the response carries Degraded=true. A store
// failure fails the query, since both passes read from it.
package search
