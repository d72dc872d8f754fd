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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Path and Name must not be empty
//   - Type must be server or agent (tool is a result grouping, not an entity)
//   - every Tool and Skill must have a name
//
// NOT validated (populated by the indexer):
//   - Vector (empty until the document is embedded)
//   - ContentHash, InsertedAt, UpdatedAt
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrMalformedEntity)
	}

	if doc.Path == "" {
		return fmt.Errorf("%w: %w", ErrMalformedEntity, ErrEmptyPath)
	}
	if doc.Name == "" {
		return fmt.Errorf("%w: %w", ErrMalformedEntity, ErrEmptyName)
	}

	if doc.Type != EntityTypeServer && doc.Type != EntityTypeAgent {
		return fmt.Errorf("%w: %w: %q", ErrMalformedEntity, ErrInvalidEntityType, doc.Type)
	}

	for _, tool := range doc.Tools {
		if tool.Name == "" {
			return fmt.Errorf("%w: %w", ErrMalformedEntity, ErrUnnamedTool)
		}
	}
	for _, skill := range doc.Skills {
		if skill.Name == "" {
			return fmt.Errorf("%w: %w", ErrMalformedEntity, ErrUnnamedSkill)
		}
	}

	return nil
}
