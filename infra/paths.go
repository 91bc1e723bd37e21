package infra

import (
	"os"
	"path/filepath"
)

// Paths lays out the data directory.
type Paths struct {
	Root string
}

// NewPaths returns the layout rooted at dir, ./data when dir is empty.
func NewPaths(dir string) Paths {
	if dir == "" {
		dir = "data"
	}
	return Paths{Root: dir}
}

func ensureDir(path string) error { return os.MkdirAll(path, 0o755) }

// JourneysDir stores saved journey documents.
func (p Paths) JourneysDir() string { return filepath.Join(p.Root, "journeys") }

// ExportsDir stores documents exported with their stats.
func (p Paths) ExportsDir() string { return filepath.Join(p.Root, "exports") }
