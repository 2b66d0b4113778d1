// Package testutil provides shared test helpers for setting up note stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/halvard/munin/internal/repo"
)

// TestRepo creates a temporary note store that is automatically cleaned up.
// The welcome note seed is off so tests start from an empty store.
func TestRepo(t *testing.T, opts ...repo.Option) *repo.Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "munin-test.db")
	opts = append([]repo.Option{repo.WithWelcomeNote(false)}, opts...)
	r, err := repo.Open(path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}
