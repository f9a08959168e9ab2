// Package storage resolves the on-disk layout shared by both servers
// (§4.7): the database root directory, the per-database subdirectory,
// and the fixed file names within it.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRoot is used when VICTOR_DB_ROOT is unset.
const DefaultRoot = "/var/lib/victord"

// Layout resolves the filesystem paths for one database.
type Layout struct {
	Root string
	Name string
}

// New resolves the layout for database name under root. An empty root
// falls back to DefaultRoot.
func New(root, name string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{Root: root, Name: name}
}

// Dir is the database's own subdirectory: <root>/<name>.
func (l Layout) Dir() string { return filepath.Join(l.Root, l.Name) }

// IndexSnapshot is the vector-index snapshot file, db.index.
func (l Layout) IndexSnapshot() string { return filepath.Join(l.Dir(), "db.index") }

// TableSnapshot is the key-value snapshot file, db.table.
func (l Layout) TableSnapshot() string { return filepath.Join(l.Dir(), "db.table") }

// IndexWAL is the vector-index WAL, db.iwal.
func (l Layout) IndexWAL() string { return filepath.Join(l.Dir(), "db.iwal") }

// TableWAL is the key-value WAL, db.twal.
func (l Layout) TableWAL() string { return filepath.Join(l.Dir(), "db.twal") }

// DefaultSocket is the endpoint path used when no -u flag is given,
// socket.unix under the database directory.
func (l Layout) DefaultSocket() string { return filepath.Join(l.Dir(), "socket.unix") }

// Ensure creates the database directory with owner-only permissions if
// it does not already exist.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Dir(), 0700); err != nil {
		return fmt.Errorf("storage: creating database directory %s: %w", l.Dir(), err)
	}
	return nil
}
