// Package testing allows for spinning up a real bolt-backed store for
// testing purposes.
package testing

import (
	"testing"

	"github.com/oraculum-network/oraculum/node/storage"
)

// SetupDB instantiates and returns a store backed by a temporary directory.
func SetupDB(t testing.TB) *storage.Store {
	db, err := storage.NewKVStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to instantiate store: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})
	return db
}
