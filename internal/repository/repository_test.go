package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fitroom/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_StoresAreIsolated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".fitroom")
	ws, err := OpenWorkspace(dir)
	require.NoError(t, err)

	lock := ws.Lock("test")
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	ctx := context.Background()
	require.NoError(t, ws.Wardrobe().Add(ctx, testItem("GAR-1")))
	require.NoError(t, ws.Journal().Append([]schema.StudioEvent{
		&schema.TimelineReset{EventID_: "EVT-1", Layers: 2, Timestamp_: time.Now()},
	}))
	_, err = ws.Sessions().Save(testSnapshot(time.Now()))
	require.NoError(t, err)

	// Store commits rename files inside their own subdirectory, never the lock file.
	_, err = os.Stat(filepath.Join(dir, ".lock"))
	require.NoError(t, err)

	for _, sub := range []string{"wardrobe", "sessions", "journal"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}
}
