package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(idgen.NewFixed(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createPending registers one pending upload per name.
func createPending(t *testing.T, s *Store, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := s.CreatePending(context.Background(), name)
		require.NoError(t, err)
	}
}

func listIDs(t *testing.T, s *Store, owner ir.RecordRef, collection string) []string {
	t.Helper()
	list, err := s.List(context.Background(), owner, collection)
	require.NoError(t, err)
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
