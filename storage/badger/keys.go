package badger

import (
	"fmt"

	"github.com/poiesic/capindex/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "capdoc"
	documentTypePrefix = "capdocty"
)

// makeDocumentKey generates a key for a document by path.
func makeDocumentKey(path string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, path))
}

// makeDocumentTypeKey generates a composite key for the entity-type index.
// Format: prefix:type:path
func makeDocumentTypeKey(entityType core.EntityType, path string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", documentTypePrefix, entityType, path))
}

// makePartialDocumentTypeKey generates a partial key for type-scoped scans.
// Format: prefix:type:
func makePartialDocumentTypeKey(entityType core.EntityType) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentTypePrefix, entityType))
}
