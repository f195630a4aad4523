package testutil

import (
	"testing"

	"github.com/hwcensus/pnpcensus/internal/inventory"
)

// NewStore creates an in-memory inventory store for testing.
// The store is automatically closed when the test completes.
func NewStore(t *testing.T) *inventory.Store {
	t.Helper()
	s, err := inventory.Open(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
