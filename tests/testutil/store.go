package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/notification-triage/internal/store"
)

// NewTestStore creates a SQLiteStore in a temporary file with all migrations
// applied. A file is used instead of :memory: so that every pooled
// connection sees the same database. The store is closed when the test
// completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "triage.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
