// Package testutil provides shared test helpers for setting up project
// directories and catalog databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/feattree/internal/storage"
	"github.com/starford/feattree/internal/store"
)

// Project is a throwaway .feat-tree directory.
type Project struct {
	Dir    string
	DBPath string
	Docs   *storage.FS
}

// TestProject creates a temporary .feat-tree directory with a document
// provider. The database file is created on first open.
func TestProject(t *testing.T) Project {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".feat-tree")
	docs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return Project{Dir: dir, DBPath: filepath.Join(dir, "features.db"), Docs: docs}
}

// TestDB opens the project's database and closes it on cleanup.
func (p Project) TestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.DriverModernc, p.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
