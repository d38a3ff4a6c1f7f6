// Package storage holds the generated documents next to the catalog
// database.
package storage

import "time"

// DocInfo describes one document on disk.
type DocInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for document file operations. Paths are
// relative to the provider root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]DocInfo, error)
	// Stat returns metadata for a single file.
	Stat(path string) (DocInfo, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Root returns the absolute directory the provider is rooted at.
	Root() string
}
