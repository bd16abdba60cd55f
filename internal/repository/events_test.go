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

func TestJournal_AppendAndRead(t *testing.T) {
	journal := NewJournal(filepath.Join(t.TempDir(), "journal"))
	now := time.Now().UTC().Truncate(time.Second)

	err := journal.Append([]schema.StudioEvent{
		&schema.BaseModelCreated{EventID_: "EVT-1", LayerID: "LYR-base", Pose: "front", Timestamp_: now},
		&schema.LayerAppended{EventID_: "EVT-2", LayerID: "LYR-tee", GarmentIDs: []string{"gemini-tee"}, Index: 1, Timestamp_: now.Add(time.Second)},
	})
	require.NoError(t, err)

	err = journal.Append([]schema.StudioEvent{
		&schema.CursorMoved{EventID_: "EVT-3", From: 1, To: 0, Timestamp_: now.Add(2 * time.Second)},
		&schema.SceneChanged{EventID_: "EVT-4", LayerID: "LYR-base", Pose: "front", OldScene: "Studio", NewScene: "Beach", Timestamp_: now.Add(3 * time.Second)},
	})
	require.NoError(t, err)

	events, err := journal.ReadJournal()
	require.NoError(t, err)
	require.Len(t, events, 4)

	created, ok := events[0].(*schema.BaseModelCreated)
	require.True(t, ok)
	assert.Equal(t, "LYR-base", created.LayerID)
	assert.True(t, created.Timestamp().Equal(now))

	appended, ok := events[1].(*schema.LayerAppended)
	require.True(t, ok)
	assert.Equal(t, []string{"gemini-tee"}, appended.GarmentIDs)

	moved, ok := events[2].(*schema.CursorMoved)
	require.True(t, ok)
	assert.Equal(t, 0, moved.To)

	scene, ok := events[3].(*schema.SceneChanged)
	require.True(t, ok)
	assert.Equal(t, "Beach", scene.NewScene)
}

func TestJournal_ReadMissing(t *testing.T) {
	journal := NewJournal(filepath.Join(t.TempDir(), "journal"))

	events, err := journal.ReadJournal()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestJournal_UnknownEventType(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "journal")
	require.NoError(t, os.MkdirAll(baseDir, 0755))
	content := "version: v1\nevents:\n  - event_type: GarmentBurned\n    event_id: EVT-1\n"
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, JournalFile), []byte(content), 0644))

	_, err := NewJournal(baseDir).ReadJournal()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestJournal_AppendNothing(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "journal")
	require.NoError(t, NewJournal(baseDir).Append(nil))

	_, err := os.Stat(baseDir)
	assert.True(t, os.IsNotExist(err))
}
