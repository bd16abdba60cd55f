package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fitroom/pkg/schema"
)

// WardrobeFile is the persisted wardrobe inside the wardrobe store directory.
const WardrobeFile = "wardrobe." + schema.WardrobeVersion + ".json"

// WardrobeStore persists the garment catalog as a JSON array.
type WardrobeStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewWardrobeStore creates a wardrobe store rooted at baseDir.
func NewWardrobeStore(baseDir string) *WardrobeStore {
	return &WardrobeStore{baseDir: baseDir}
}

// List returns the wardrobe. A missing or unreadable file yields the defaults.
func (s *WardrobeStore) List(ctx context.Context) ([]schema.WardrobeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Has reports whether a garment with id is in the wardrobe.
func (s *WardrobeStore) Has(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.load() {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Add appends item. Adding an id that is already present is a no-op.
func (s *WardrobeStore) Add(ctx context.Context, item schema.WardrobeItem) error {
	if err := schema.ValidateWardrobeItem(&item); err != nil {
		return fmt.Errorf("invalid wardrobe item: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load()
	for _, existing := range items {
		if existing.ID == item.ID {
			return nil
		}
	}
	return s.write(append(items, item))
}

// Remove deletes the garment with id.
func (s *WardrobeStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load()
	kept := make([]schema.WardrobeItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("garment %s not found", id)
	}
	return s.write(kept)
}

// load reads the wardrobe file, falling back to the default catalog.
func (s *WardrobeStore) load() []schema.WardrobeItem {
	data, err := os.ReadFile(filepath.Join(s.baseDir, WardrobeFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("read wardrobe failed, using defaults", "error", err)
		}
		return schema.DefaultWardrobe()
	}

	var items []schema.WardrobeItem
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("parse wardrobe failed, using defaults", "error", err)
		return schema.DefaultWardrobe()
	}
	return items
}

// write replaces the wardrobe file atomically.
func (s *WardrobeStore) write(items []schema.WardrobeItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wardrobe: %w", err)
	}

	if err := writeFileAtomic(s.baseDir, WardrobeFile, data); err != nil {
		return fmt.Errorf("write wardrobe: %w", err)
	}
	return nil
}
