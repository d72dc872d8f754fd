package badger

import (
	"testing"

	"github.com/poiesic/capindex/storage"
	"github.com/stretchr/testify/require"
)

// NewMemoryRepository creates an in-memory document repository for tests.
// The backend is closed automatically when the test finishes.
func NewMemoryRepository(t *testing.T) storage.DocumentRepository {
	t.Helper()

	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, backend.Close())
	})

	return NewDocumentRepository(backend)
}
