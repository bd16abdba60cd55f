package repository

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace lays out the on-disk studio directory:
//
//	<dir>/.lock                      session lock
//	<dir>/wardrobe/wardrobe.v1.json  garment catalog
//	<dir>/sessions/<timestamp>.yaml  saved studios
//	<dir>/journal/journal.yaml       event journal
//
// Each store commits into its own subdirectory so their transactions never
// swap the same tree.
type Workspace struct {
	dir string

	wardrobe *WardrobeStore
	sessions *SessionStore
	journal  *Journal
}

// OpenWorkspace creates the workspace directory if needed.
func OpenWorkspace(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{
		dir:      dir,
		wardrobe: NewWardrobeStore(filepath.Join(dir, "wardrobe")),
		sessions: NewSessionStore(filepath.Join(dir, "sessions")),
		journal:  NewJournal(filepath.Join(dir, "journal")),
	}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// Wardrobe returns the garment catalog store.
func (w *Workspace) Wardrobe() *WardrobeStore { return w.wardrobe }

// Sessions returns the snapshot store.
func (w *Workspace) Sessions() *SessionStore { return w.sessions }

// Journal returns the event journal.
func (w *Workspace) Journal() *Journal { return w.journal }

// Lock returns a lock over the workspace for the given interface name.
func (w *Workspace) Lock(interfaceType string) *FileLock {
	return NewFileLock(filepath.Join(w.dir, ".lock"), interfaceType)
}
