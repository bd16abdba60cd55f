package core

import (
	"errors"
	"testing"

	"fitroom/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPoses = []string{"front", "three-quarter", "side"}

func newActiveTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl := NewTimeline(testPoses)
	_, err := tl.Initialize("base.png")
	require.NoError(t, err)
	return tl
}

func garmentLayer(id, pose string, img schema.ImageRef) *schema.OutfitLayer {
	l := &schema.OutfitLayer{
		ID:      "LYR-" + id,
		Garment: &schema.WardrobeItem{ID: id, Name: id, URL: "https://example.com/" + id + ".png"},
	}
	l.PoseImages.Set(pose, img)
	return l
}

func layerIDs(layers []*schema.OutfitLayer) []string {
	ids := make([]string, 0, len(layers))
	for _, l := range layers {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestTimeline_Uninitialized(t *testing.T) {
	tl := NewTimeline(nil)

	assert.False(t, tl.IsActive())
	assert.Equal(t, schema.DefaultPoses, tl.Poses())
	assert.Nil(t, tl.ActiveLayers())
	assert.Nil(t, tl.AvailablePoseKeys())
	assert.Empty(t, tl.ActiveGarmentIDs())

	_, ok := tl.CurrentImage()
	assert.False(t, ok)

	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	assert.ErrorIs(t, err, ErrTimelineInactive)

	_, err = tl.SetPoseImage("front", "x.png")
	assert.ErrorIs(t, err, ErrTimelineInactive)

	_, err = tl.RemoveLayer(1)
	assert.ErrorIs(t, err, ErrTimelineInactive)

	assert.False(t, tl.Undo())
	assert.False(t, tl.Redo())
}

func TestTimeline_Initialize(t *testing.T) {
	tl := NewTimeline(testPoses)

	base, err := tl.Initialize("base.png")
	require.NoError(t, err)

	assert.True(t, tl.IsActive())
	assert.True(t, base.IsBase())
	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, 0, tl.Cursor())
	assert.Equal(t, []string{"front"}, tl.AvailablePoseKeys())

	img, ok := tl.CurrentImage()
	require.True(t, ok)
	assert.Equal(t, schema.ImageRef("base.png"), img)

	t.Run("twice", func(t *testing.T) {
		_, err := tl.Initialize("other.png")
		assert.ErrorIs(t, err, ErrTimelineActive)
		assert.Equal(t, 1, tl.Len())
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := NewTimeline(testPoses).Initialize("")
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestTimeline_AppendFirstGarment(t *testing.T) {
	tl := newActiveTimeline(t)

	discarded, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)

	assert.Zero(t, discarded)
	assert.Equal(t, 2, tl.Len())
	assert.Equal(t, 1, tl.Cursor())
	assert.Equal(t, []string{"A"}, tl.ActiveGarmentIDs())
	assert.True(t, tl.IsWorn("A"))
	assert.True(t, tl.CanUndo())
	assert.False(t, tl.CanRedo())

	img, _ := tl.CurrentImage()
	assert.Equal(t, schema.ImageRef("a.png"), img)
}

func TestTimeline_AppendAfterUndoDropsRedo(t *testing.T) {
	tl := newActiveTimeline(t)
	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)

	require.True(t, tl.Undo())
	assert.Equal(t, 0, tl.Cursor())
	assert.True(t, tl.CanRedo())
	assert.Empty(t, tl.ActiveGarmentIDs())

	discarded, err := tl.AppendLayer(garmentLayer("B", "front", "b.png"))
	require.NoError(t, err)

	assert.Equal(t, 1, discarded)
	assert.Equal(t, 2, tl.Len())
	assert.Equal(t, 1, tl.Cursor())
	assert.Equal(t, []string{"B"}, tl.ActiveGarmentIDs())
	assert.False(t, tl.IsWorn("A"))
	assert.False(t, tl.CanRedo())
}

func TestTimeline_PoseRendersCachedPerLayer(t *testing.T) {
	tl := newActiveTimeline(t)
	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)

	require.NoError(t, tl.SetActivePoseIndex(1))
	img, _ := tl.CurrentImage()
	assert.Equal(t, schema.ImageRef("a.png"), img, "uncached pose falls back to first render")

	_, err = tl.SetPoseImage("three-quarter", "a-34.png")
	require.NoError(t, err)

	assert.Equal(t, []string{"front", "three-quarter"}, tl.AvailablePoseKeys())
	img, _ = tl.DisplayedImage(1)
	assert.Equal(t, schema.ImageRef("a-34.png"), img)
	img, _ = tl.DisplayedImage(0)
	assert.Equal(t, schema.ImageRef("a.png"), img)

	// The base layer keeps only its own render.
	require.True(t, tl.Undo())
	assert.Equal(t, []string{"front"}, tl.AvailablePoseKeys())
	assert.Equal(t, 0, tl.ActivePoseIndex())
}

func TestTimeline_AppendDiscardsLayersPastCursor(t *testing.T) {
	tl := newActiveTimeline(t)
	for _, id := range []string{"A", "B", "C", "D"} {
		_, err := tl.AppendLayer(garmentLayer(id, "front", schema.ImageRef(id+".png")))
		require.NoError(t, err)
	}
	require.Equal(t, 5, tl.Len())

	tl.Undo()
	tl.Undo()
	tl.Undo()
	k := tl.Cursor()
	require.Equal(t, 1, k)
	before := layerIDs(tl.Layers())

	discarded, err := tl.AppendLayer(garmentLayer("E", "front", "e.png"))
	require.NoError(t, err)

	assert.Equal(t, 3, discarded)
	assert.Equal(t, k+2, tl.Len())
	assert.Equal(t, k+1, tl.Cursor())
	assert.Equal(t, append(before[:k+1:k+1], "LYR-E"), layerIDs(tl.Layers()))
}

func TestTimeline_UndoThenRedoRestoresCursor(t *testing.T) {
	tl := newActiveTimeline(t)
	for _, id := range []string{"A", "B", "C"} {
		_, err := tl.AppendLayer(garmentLayer(id, "front", schema.ImageRef(id+".png")))
		require.NoError(t, err)
	}
	tl.Undo()

	c := tl.Cursor()
	before := tl.Layers()

	require.True(t, tl.Undo())
	require.True(t, tl.Redo())

	assert.Equal(t, c, tl.Cursor())
	assert.Equal(t, before, tl.Layers())
}

func TestTimeline_UndoRedoResetPose(t *testing.T) {
	tl := newActiveTimeline(t)
	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)

	require.NoError(t, tl.SetActivePoseIndex(2))
	require.True(t, tl.Undo())
	assert.Equal(t, 0, tl.ActivePoseIndex())

	require.NoError(t, tl.SetActivePoseIndex(2))
	assert.False(t, tl.Undo(), "cursor already at base")
	assert.Equal(t, 2, tl.ActivePoseIndex(), "pose kept when the cursor does not move")

	require.True(t, tl.Redo())
	assert.Equal(t, 0, tl.ActivePoseIndex())
	assert.False(t, tl.Redo())
}

func TestTimeline_RemoveLayer(t *testing.T) {
	setup := func(t *testing.T) *Timeline {
		tl := newActiveTimeline(t)
		for _, id := range []string{"A", "B", "C"} {
			_, err := tl.AppendLayer(garmentLayer(id, "front", schema.ImageRef(id+".png")))
			require.NoError(t, err)
		}
		return tl
	}

	t.Run("base layer", func(t *testing.T) {
		tl := setup(t)
		before := tl.Layers()

		removed, err := tl.RemoveLayer(0)

		assert.Nil(t, removed)
		assert.ErrorIs(t, err, ErrBaseLayerRemoval)
		var se *StructureError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "remove layer", se.Operation)
		assert.Equal(t, before, tl.Layers())
		assert.Equal(t, 3, tl.Cursor())
	})

	t.Run("out of range", func(t *testing.T) {
		tl := setup(t)
		_, err := tl.RemoveLayer(4)
		assert.ErrorIs(t, err, ErrLayerIndex)
		_, err = tl.RemoveLayer(-1)
		assert.ErrorIs(t, err, ErrLayerIndex)
		assert.Equal(t, 4, tl.Len())
	})

	t.Run("below cursor", func(t *testing.T) {
		tl := setup(t)
		removed, err := tl.RemoveLayer(1)
		require.NoError(t, err)

		assert.Equal(t, "LYR-A", removed.ID)
		assert.Equal(t, []string{"B", "C"}, tl.ActiveGarmentIDs())
		assert.Equal(t, 2, tl.Cursor())
	})

	t.Run("at cursor", func(t *testing.T) {
		tl := setup(t)
		_, err := tl.RemoveLayer(3)
		require.NoError(t, err)

		assert.Equal(t, 2, tl.Cursor())
		img, _ := tl.CurrentImage()
		assert.Equal(t, schema.ImageRef("B.png"), img)
	})

	t.Run("displayed layer resets pose", func(t *testing.T) {
		tl := setup(t)
		_, err := tl.SetPoseImage(testPoses[2], "C-side.png")
		require.NoError(t, err)
		require.NoError(t, tl.SetActivePoseIndex(2))

		_, err = tl.RemoveLayer(3)
		require.NoError(t, err)

		assert.Equal(t, 0, tl.ActivePoseIndex())
		img, ok := tl.CurrentImage()
		require.True(t, ok)
		assert.Equal(t, schema.ImageRef("B.png"), img)
	})

	t.Run("earlier layer keeps pose", func(t *testing.T) {
		tl := setup(t)
		_, err := tl.SetPoseImage(testPoses[1], "C-three-quarter.png")
		require.NoError(t, err)
		require.NoError(t, tl.SetActivePoseIndex(1))

		_, err = tl.RemoveLayer(1)
		require.NoError(t, err)

		assert.Equal(t, 1, tl.ActivePoseIndex())
		img, _ := tl.CurrentImage()
		assert.Equal(t, schema.ImageRef("C-three-quarter.png"), img)
	})

	t.Run("above cursor", func(t *testing.T) {
		tl := setup(t)
		tl.Undo()
		tl.Undo()
		require.Equal(t, 1, tl.Cursor())

		_, err := tl.RemoveLayer(3)
		require.NoError(t, err)

		assert.Equal(t, 1, tl.Cursor())
		assert.Equal(t, 3, tl.Len())
	})
}

func TestTimeline_MultiGarmentLayer(t *testing.T) {
	tl := newActiveTimeline(t)

	a := schema.WardrobeItem{ID: "A", Name: "Tee", URL: "a"}
	b := schema.WardrobeItem{ID: "B", Name: "Jacket", URL: "b"}
	layer := &schema.OutfitLayer{ID: "LYR-AB", Garment: &a, Garments: []schema.WardrobeItem{a, b}}
	layer.PoseImages.Set("front", "ab.png")

	_, err := tl.AppendLayer(layer)
	require.NoError(t, err)

	active, ok := tl.ActiveLayer()
	require.True(t, ok)
	assert.Equal(t, "A", active.Garment.ID)
	assert.Equal(t, []string{"A", "B"}, tl.ActiveGarmentIDs(), "primary is not counted twice")
	assert.Equal(t, 1, active.PoseImages.Len())
	assert.Equal(t, "Tee + Jacket", active.Label())
}

func TestTimeline_AppendLayerValidation(t *testing.T) {
	tl := newActiveTimeline(t)

	tests := []struct {
		name  string
		layer *schema.OutfitLayer
	}{
		{name: "nil", layer: nil},
		{name: "base", layer: &schema.OutfitLayer{ID: "x", PoseImages: schema.PoseImages{{Pose: "front", Image: "x"}}}},
		{name: "no render", layer: &schema.OutfitLayer{ID: "x", Garment: &schema.WardrobeItem{ID: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.AppendLayer(tt.layer)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, 1, tl.Len())
		})
	}
}

func TestTimeline_SetPoseImageCopyOnWrite(t *testing.T) {
	tl := newActiveTimeline(t)

	before, ok := tl.ActiveLayer()
	require.True(t, ok)

	_, err := tl.SetPoseImage("front", "base-beach.png")
	require.NoError(t, err)

	img, _ := tl.CurrentImage()
	assert.Equal(t, schema.ImageRef("base-beach.png"), img)

	old, _ := before.PoseImages.Get("front")
	assert.Equal(t, schema.ImageRef("base.png"), old)

	_, err = tl.SetPoseImage("front", "")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestTimeline_SetActivePoseIndex(t *testing.T) {
	tl := newActiveTimeline(t)

	assert.ErrorIs(t, tl.SetActivePoseIndex(3), ErrPoseIndex)
	assert.ErrorIs(t, tl.SetActivePoseIndex(-1), ErrPoseIndex)
	assert.Equal(t, 0, tl.ActivePoseIndex())
}

func TestTimeline_Reset(t *testing.T) {
	tl := newActiveTimeline(t)
	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)
	require.NoError(t, tl.SetActivePoseIndex(1))

	assert.Equal(t, 2, tl.Reset())
	assert.False(t, tl.IsActive())
	assert.Equal(t, 0, tl.Cursor())
	assert.Equal(t, 0, tl.ActivePoseIndex())

	_, err = tl.Initialize("again.png")
	assert.NoError(t, err)
}

func TestTimeline_SnapshotRestore(t *testing.T) {
	tl := newActiveTimeline(t)
	_, err := tl.AppendLayer(garmentLayer("A", "front", "a.png"))
	require.NoError(t, err)
	_, err = tl.AppendLayer(garmentLayer("B", "front", "b.png"))
	require.NoError(t, err)
	tl.Undo()
	require.NoError(t, tl.SetActivePoseIndex(2))

	snap := tl.Snapshot()
	assert.Equal(t, schema.SessionVersion, snap.Version)
	assert.Len(t, snap.Layers, 3)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, 2, snap.ActivePoseIndex)

	restored := NewTimeline(nil)
	require.NoError(t, restored.Restore(snap))

	assert.Equal(t, testPoses, restored.Poses())
	assert.Equal(t, tl.Layers(), restored.Layers())
	assert.Equal(t, 1, restored.Cursor())
	assert.True(t, restored.CanRedo())

	t.Run("invalid", func(t *testing.T) {
		bad := tl.Snapshot()
		bad.Cursor = 7
		err := NewTimeline(nil).Restore(bad)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestTimeline_ReturnedLayersAreCopies(t *testing.T) {
	tl := newActiveTimeline(t)

	layers := tl.ActiveLayers()
	layers[0].PoseImages.Set("front", "tampered.png")

	img, _ := tl.CurrentImage()
	assert.Equal(t, schema.ImageRef("base.png"), img)
}
