// Package testutil provides shared test helpers for setting up workspaces
// and asset databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/assetstore"
	"github.com/starford/raido/internal/capability"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/storage"
)

// TestAssetDB creates a temporary SQLite asset store that is automatically
// cleaned up.
func TestAssetDB(t *testing.T) *assetstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := assetstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a
// storage.Provider rooted in it.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestNormalizer returns a pipeline normalizer with the given safe texture
// dimension and JPEG defaults.
func TestNormalizer(t *testing.T, safeMax int) *pipeline.Normalizer {
	t.Helper()
	cap := capability.Resolve(capability.Static(safeMax))
	return pipeline.New(cap, pipeline.Options{})
}
