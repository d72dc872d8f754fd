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


// Package ai provides abstractions for the embedding services used by capindex.
//
// This package defines the interfaces for turning text into fixed-dimension
// embedding vectors. It follows the dependency inversion principle, allowing
// the indexer and searcher to depend on abstractions rather than concrete
// model backends.
//
// # Design Principles
//
// The package is designed around two key interfaces:
//
//   - Embedder: generates vector embeddings from text and reports the
//     model's fixed output dimension
//   - Provider: aggregates embedding services for initialization and
//     lifecycle management
//
// A Provider is constructed explicitly at startup and passed into the
// components that need it. There is deliberately no lazy-loaded, process-wide
// model handle.
//
// # Implementation Packages
//
//   - ai/openai: production implementation backed by any OpenAI-compatible
//     API (hosted, or locally-resident models via Ollama and friends)
//   - ai/mock: deterministic test doubles for unit testing without external
//     dependencies
//
// # Retries
//
// Hosted backends fail transiently. NewRetryEmbedder wraps any Embedder with
// a bounded per-attempt timeout and an exponential-backoff retry budget.
// Exhausting the budget surfaces the last error to the caller, which decides
// whether to degrade (queries) or fail (indexing).
package ai
