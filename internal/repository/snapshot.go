package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fitroom/pkg/schema"

	"gopkg.in/yaml.v3"
)

const snapshotTimeFormat = "2006-01-02T15-04-05.000000000"

// SessionStore saves studio snapshots as timestamped YAML files.
type SessionStore struct {
	baseDir string
}

// NewSessionStore creates a session store rooted at baseDir.
func NewSessionStore(baseDir string) *SessionStore {
	return &SessionStore{baseDir: baseDir}
}

// Save writes snap to a new file and returns its name.
func (s *SessionStore) Save(snap *schema.SessionSnapshot) (string, error) {
	if err := schema.ValidateSessionSnapshot(snap); err != nil {
		return "", fmt.Errorf("invalid session: %w", err)
	}

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	if snap.Version == "" {
		snap.Version = schema.SessionVersion
	}

	name := snap.SavedAt.UTC().Format(snapshotTimeFormat) + ".yaml"

	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := writeFileAtomic(s.baseDir, name, data); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}

	return name, nil
}

// Load reads the named snapshot.
func (s *SessionStore) Load(name string) (*schema.SessionSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var snap schema.SessionSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if err := schema.ValidateSessionSnapshot(&snap); err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", name, err)
	}
	return &snap, nil
}

// LoadLatest returns the most recent snapshot, or nil if none exist.
func (s *SessionStore) LoadLatest() (*schema.SessionSnapshot, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return s.Load(names[0])
}

// List returns snapshot names, newest first.
func (s *SessionStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		if _, err := time.Parse(snapshotTimeFormat, strings.TrimSuffix(entry.Name(), ".yaml")); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}

	// Sort by filename (timestamp) descending
	sort.Slice(names, func(i, j int) bool {
		return names[i] > names[j]
	})
	return names, nil
}
