package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fitroom/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(savedAt time.Time) *schema.SessionSnapshot {
	tee := schema.WardrobeItem{ID: "gemini-tee", Name: "Tee", URL: "https://example.com/tee.png"}
	return &schema.SessionSnapshot{
		SavedAt: savedAt,
		Poses:   []string{"front", "side"},
		Layers: []schema.OutfitLayer{
			{ID: "LYR-base", PoseImages: schema.PoseImages{{Pose: "front", Image: "data:image/png;base64,QkFTRQ=="}}},
			{ID: "LYR-tee", Garment: &tee, PoseImages: schema.PoseImages{
				{Pose: "front", Image: "data:image/png;base64,VEVF"},
				{Pose: "side", Image: "data:image/png;base64,U0lERQ=="},
			}},
		},
		Cursor:          1,
		ActivePoseIndex: 1,
		Scene:           "Studio",
	}
}

func TestSessionStore_SaveAndLoad(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "sessions"))

	name, err := store.Save(testSnapshot(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16T09-30-00.000000000.yaml", name)

	loaded, err := store.Load(name)
	require.NoError(t, err)
	assert.Equal(t, schema.SessionVersion, loaded.Version)
	assert.Equal(t, 1, loaded.Cursor)
	assert.Equal(t, 1, loaded.ActivePoseIndex)
	require.Len(t, loaded.Layers, 2)
	assert.True(t, loaded.Layers[0].IsBase())
	assert.Equal(t, "gemini-tee", loaded.Layers[1].Garment.ID)
	assert.Equal(t, []string{"front", "side"}, loaded.Layers[1].PoseImages.Keys())
}

func TestSessionStore_LoadLatest(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "sessions"))

	latest, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := testSnapshot(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	newer := testSnapshot(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC))
	newer.Scene = "Beach"

	_, err = store.Save(newer)
	require.NoError(t, err)
	_, err = store.Save(older)
	require.NoError(t, err)

	latest, err = store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "Beach", latest.Scene)

	names, err := store.List()
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestSessionStore_RejectsInvalidSnapshot(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "sessions"))

	snap := testSnapshot(time.Now())
	snap.Cursor = 5
	_, err := store.Save(snap)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cursor")
}

func TestSessionStore_IgnoresForeignFiles(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "sessions")
	require.NoError(t, os.MkdirAll(baseDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "notes.yaml"), []byte("x: 1"), 0644))

	store := NewSessionStore(baseDir)
	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
