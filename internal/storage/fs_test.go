package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/feattree/internal/checksum"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(filepath.Join(t.TempDir(), ".feat-tree"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestNewFSCreatesRoot(t *testing.T) {
	s := tempRoot(t)
	info, err := os.Stat(s.Root())
	if err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestNewFSFileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(path); err == nil {
		t.Error("expected error when root is a file")
	}
}

func read(t *testing.T, s *FS, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.Root(), name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestWrite(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Features\n")
	if err := s.Write("FEATURES.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := read(t, s, "FEATURES.md")
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteReplaces(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("FEATURES.md", []byte("old"))
	if err := s.Write("FEATURES.md", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := read(t, s, "FEATURES.md"); string(got) != "new" {
		t.Errorf("content = %q", got)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files after replace: %d entries", len(entries))
	}
}

func TestStat(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("WORKFLOWS.md", []byte("# Workflows\n"))

	info, err := s.Stat("WORKFLOWS.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Checksum != checksum.Sum([]byte("# Workflows\n")) {
		t.Errorf("checksum = %s", info.Checksum)
	}
	if _, err := s.Stat("MISSING.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: err = %v, want fs.ErrNotExist", err)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("FEATURES.md", []byte("a"))
	_ = s.Write("WORKFLOWS.md", []byte("b"))
	_ = os.WriteFile(filepath.Join(s.Root(), "features.db"), []byte("not md"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "FEATURES.md" || items[1].Path != "WORKFLOWS.md" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Stat(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}
