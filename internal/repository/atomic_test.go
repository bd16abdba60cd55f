package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fitroom/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stagingFiles lists leftover temp files in a store directory.
func stagingFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestFileTx_CreatesStoreDirectory(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "wardrobe")

	tx, err := BeginFileTx(baseDir, WardrobeFile)
	require.NoError(t, err)

	current, err := tx.Current()
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, tx.Write([]byte(`[]`)))
	require.NoError(t, tx.Commit())

	data, err := os.ReadFile(filepath.Join(baseDir, WardrobeFile))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	info, err := os.Stat(tx.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	assert.Empty(t, stagingFiles(t, baseDir))
}

func TestFileTx_StagedWardrobeInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "wardrobe")
	store := NewWardrobeStore(baseDir)
	require.NoError(t, store.Add(ctx, testItem("GAR-1")))

	tx, err := BeginFileTx(baseDir, WardrobeFile)
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte(`[{"id":"GAR-2","name":"Scarf","url":"data:image/png;base64,AA=="}]`)))

	has, err := store.Has(ctx, "GAR-1")
	require.NoError(t, err)
	assert.True(t, has, "committed wardrobe still visible")

	require.NoError(t, tx.Commit())

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Scarf", items[0].Name)
}

func TestFileTx_RollbackKeepsWardrobe(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "wardrobe")
	store := NewWardrobeStore(baseDir)
	require.NoError(t, store.Add(ctx, testItem("GAR-1")))
	before, err := os.ReadFile(filepath.Join(baseDir, WardrobeFile))
	require.NoError(t, err)

	tx, err := BeginFileTx(baseDir, WardrobeFile)
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte(`[]`)))
	tx.Rollback()

	after, err := os.ReadFile(filepath.Join(baseDir, WardrobeFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, stagingFiles(t, baseDir))

	// Rolling back twice is harmless.
	tx.Rollback()
}

func TestFileTx_FinishedTransactionRejectsWrites(t *testing.T) {
	tx, err := BeginFileTx(filepath.Join(t.TempDir(), "journal"), JournalFile)
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte("version: v1\n")))
	require.NoError(t, tx.Commit())

	assert.Error(t, tx.Commit())
	assert.Error(t, tx.Write([]byte("version: v2\n")))

	// Rollback after commit must not touch the committed file.
	tx.Rollback()
	data, err := os.ReadFile(tx.Path())
	require.NoError(t, err)
	assert.Equal(t, "version: v1\n", string(data))
}

func TestFileTx_RewriteShrinksStagedContent(t *testing.T) {
	tx, err := BeginFileTx(filepath.Join(t.TempDir(), "journal"), JournalFile)
	require.NoError(t, err)
	require.NoError(t, tx.Write([]byte("a much longer first draft\n")))
	require.NoError(t, tx.Write([]byte("short\n")))
	require.NoError(t, tx.Commit())

	data, err := os.ReadFile(tx.Path())
	require.NoError(t, err)
	assert.Equal(t, "short\n", string(data))
}

func TestJournal_AppendsLeaveNoStagingFiles(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "journal")
	journal := NewJournal(baseDir)

	for i := range 10 {
		event := &schema.CursorMoved{EventID_: fmt.Sprintf("EVT-%d", i), From: 1, To: 0, Timestamp_: time.Now()}
		require.NoError(t, journal.Append([]schema.StudioEvent{event}))
	}

	events, err := journal.ReadJournal()
	require.NoError(t, err)
	assert.Len(t, events, 10)
	assert.Empty(t, stagingFiles(t, baseDir))
}

func TestJournal_FailedAppendKeepsJournal(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "journal")
	require.NoError(t, os.MkdirAll(baseDir, 0755))
	corrupt := []byte("events: [unterminated\n")
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, JournalFile), corrupt, 0644))

	err := NewJournal(baseDir).Append([]schema.StudioEvent{
		&schema.TimelineReset{EventID_: "EVT-1", Layers: 1, Timestamp_: time.Now()},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse journal")

	data, err := os.ReadFile(filepath.Join(baseDir, JournalFile))
	require.NoError(t, err)
	assert.Equal(t, corrupt, data)
	assert.Empty(t, stagingFiles(t, baseDir))
}

func TestSessionStore_SaveLeavesOnlySnapshots(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "sessions")
	store := NewSessionStore(baseDir)

	_, err := store.Save(testSnapshot(time.Now()))
	require.NoError(t, err)

	assert.Empty(t, stagingFiles(t, baseDir))
	names, err := store.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}
