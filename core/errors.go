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


package core

import "errors"

// Domain error kinds
var (
	// ErrMalformedEntity indicates an entity record is missing required fields.
	// Such entities are skipped at index time with a logged warning.
	ErrMalformedEntity = errors.New("malformed entity")

	// ErrDimensionMismatch indicates an embedding does not match the
	// collection's configured dimension. Fatal at indexing time; not retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding provider timed out or
	// exhausted its retry budget. Queries degrade to keyword-only scoring.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrBackendUnavailable indicates the document store is unreachable.
	// Queries fail with this retryable error; no partial degrade is possible.
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrEmptyPath indicates the Path field is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidEntityType indicates an EntityType that cannot be indexed.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrUnnamedTool indicates a server tool without a name.
	ErrUnnamedTool = errors.New("tool name cannot be empty")

	// ErrUnnamedSkill indicates an agent skill without a name.
	ErrUnnamedSkill = errors.New("skill name cannot be empty")
)
