package core

import (
	"fmt"
	"sync"

	"fitroom/pkg/schema"
)

// Timeline is the outfit history: a list of layers where index 0 is the base
// model, a cursor selecting the last active layer, and the pose being viewed.
//
// Layers past the cursor are redo-able until the next append truncates them.
// Every image a layer has ever rendered stays cached on it, keyed by pose.
type Timeline struct {
	mu sync.RWMutex

	history    []*schema.OutfitLayer
	cursor     int
	poses      []string
	activePose int
}

// NewTimeline creates an empty timeline over the given pose catalog.
func NewTimeline(poses []string) *Timeline {
	if len(poses) == 0 {
		poses = schema.DefaultPoses
	}
	return &Timeline{poses: append([]string(nil), poses...)}
}

// Initialize seeds the timeline with the base model rendered in the first pose.
func (t *Timeline) Initialize(base schema.ImageRef) (*schema.OutfitLayer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) > 0 {
		return nil, ErrTimelineActive
	}
	if base.IsZero() {
		return nil, &ValidationError{Field: "base", Message: "base image is required"}
	}

	id, err := schema.NewLayerID()
	if err != nil {
		return nil, fmt.Errorf("generate layer id: %w", err)
	}

	layer := &schema.OutfitLayer{ID: id}
	layer.PoseImages.Set(t.poses[0], base)

	t.history = []*schema.OutfitLayer{layer}
	t.cursor = 0
	t.activePose = 0
	return layer.Clone(), nil
}

// IsActive reports whether a base model exists.
func (t *Timeline) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history) > 0
}

// Len returns the number of layers, including redo-able ones.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// Cursor returns the index of the last active layer.
func (t *Timeline) Cursor() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// CanUndo reports whether Undo would move the cursor.
func (t *Timeline) CanUndo() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor > 0
}

// CanRedo reports whether Redo would move the cursor.
func (t *Timeline) CanRedo() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor < len(t.history)-1
}

// Layers returns copies of every layer, including redo-able ones.
func (t *Timeline) Layers() []*schema.OutfitLayer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneLayers(t.history)
}

// ActiveLayers returns copies of layers 0 through the cursor.
func (t *Timeline) ActiveLayers() []*schema.OutfitLayer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.history) == 0 {
		return nil
	}
	return cloneLayers(t.history[:t.cursor+1])
}

// ActiveLayer returns a copy of the layer at the cursor.
func (t *Timeline) ActiveLayer() (*schema.OutfitLayer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.history) == 0 {
		return nil, false
	}
	return t.history[t.cursor].Clone(), true
}

// ActiveGarmentIDs returns the ids worn across the active layers, first
// appearance first.
func (t *Timeline) ActiveGarmentIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	seen := map[string]bool{}
	for i := 0; i < len(t.history) && i <= t.cursor; i++ {
		for _, id := range t.history[i].GarmentIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// IsWorn reports whether garmentID is part of the active outfit.
func (t *Timeline) IsWorn(garmentID string) bool {
	for _, id := range t.ActiveGarmentIDs() {
		if id == garmentID {
			return true
		}
	}
	return false
}

// Poses returns the pose catalog.
func (t *Timeline) Poses() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.poses...)
}

// ActivePoseIndex returns the pose being viewed.
func (t *Timeline) ActivePoseIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activePose
}

// SetActivePoseIndex switches the viewed pose without rendering anything.
func (t *Timeline) SetActivePoseIndex(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.poses) {
		return fmt.Errorf("%w: %d", ErrPoseIndex, index)
	}
	t.activePose = index
	return nil
}

// DisplayedImage returns the active layer's render for the pose at poseIndex,
// or its first render if that pose has not been generated yet.
func (t *Timeline) DisplayedImage(poseIndex int) (schema.ImageRef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.displayedImage(poseIndex)
}

// CurrentImage is DisplayedImage for the active pose.
func (t *Timeline) CurrentImage() (schema.ImageRef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.displayedImage(t.activePose)
}

func (t *Timeline) displayedImage(poseIndex int) (schema.ImageRef, bool) {
	if len(t.history) == 0 {
		return "", false
	}
	layer := t.history[t.cursor]
	if poseIndex >= 0 && poseIndex < len(t.poses) {
		if img, ok := layer.PoseImages.Get(t.poses[poseIndex]); ok {
			return img, true
		}
	}
	return layer.PoseImages.First()
}

// AvailablePoseKeys returns the poses already rendered for the active layer.
func (t *Timeline) AvailablePoseKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.history) == 0 {
		return nil
	}
	return t.history[t.cursor].PoseImages.Keys()
}

// AppendLayer drops any redo-able layers, appends layer and moves the cursor
// onto it. It returns how many layers were dropped.
func (t *Timeline) AppendLayer(layer *schema.OutfitLayer) (int, error) {
	if layer == nil || layer.IsBase() {
		return 0, &ValidationError{Field: "layer", Message: "appended layer must carry a garment"}
	}
	if err := schema.ValidateLayer(layer); err != nil {
		return 0, &ValidationError{Field: "layer", Message: err.Error(), Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return 0, ErrTimelineInactive
	}

	discarded := len(t.history) - (t.cursor + 1)
	t.history = append(t.history[:t.cursor+1:t.cursor+1], layer.Clone())
	t.cursor = len(t.history) - 1
	return discarded, nil
}

// Undo moves the cursor back one layer and returns to the first pose.
// It reports whether the cursor moved.
func (t *Timeline) Undo() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursor == 0 {
		return false
	}
	t.cursor--
	t.activePose = 0
	return true
}

// Redo moves the cursor forward one layer and returns to the first pose.
// It reports whether the cursor moved.
func (t *Timeline) Redo() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursor >= len(t.history)-1 {
		return false
	}
	t.cursor++
	t.activePose = 0
	return true
}

// RemoveLayer deletes a garment layer. A cursor at or past index moves back
// one. Removing the displayed layer shows the previous one in the first pose,
// as Undo does.
func (t *Timeline) RemoveLayer(index int) (*schema.OutfitLayer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return nil, ErrTimelineInactive
	}
	if index == 0 {
		return nil, &StructureError{
			Operation: "remove layer",
			Message:   ErrBaseLayerRemoval.Error(),
			Err:       ErrBaseLayerRemoval,
		}
	}
	if index < 0 || index >= len(t.history) {
		return nil, fmt.Errorf("%w: %d", ErrLayerIndex, index)
	}

	removed := t.history[index]
	t.history = append(t.history[:index:index], t.history[index+1:]...)
	switch {
	case t.cursor == index:
		t.cursor--
		t.activePose = 0
	case t.cursor > index:
		t.cursor--
	}
	return removed, nil
}

// SetPoseImage caches image for pose on the active layer, overwriting any
// previous render for that pose.
func (t *Timeline) SetPoseImage(pose string, image schema.ImageRef) (*schema.OutfitLayer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return nil, ErrTimelineInactive
	}
	if image.IsZero() {
		return nil, &ValidationError{Field: "image", Message: "pose image cannot be empty"}
	}

	// Copy before writing so clones handed out earlier keep their renders.
	layer := t.history[t.cursor].Clone()
	layer.PoseImages.Set(pose, image)
	t.history[t.cursor] = layer
	return layer.Clone(), nil
}

// Reset empties the timeline.
func (t *Timeline) Reset() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.history)
	t.history = nil
	t.cursor = 0
	t.activePose = 0
	return n
}

// Snapshot captures the full history and view state.
func (t *Timeline) Snapshot() *schema.SessionSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &schema.SessionSnapshot{
		Version:         schema.SessionVersion,
		Poses:           append([]string(nil), t.poses...),
		Layers:          make([]schema.OutfitLayer, 0, len(t.history)),
		Cursor:          t.cursor,
		ActivePoseIndex: t.activePose,
	}
	for _, l := range t.history {
		snap.Layers = append(snap.Layers, *l.Clone())
	}
	return snap
}

// Restore replaces the timeline with a saved history.
func (t *Timeline) Restore(snap *schema.SessionSnapshot) error {
	if err := schema.ValidateSessionSnapshot(snap); err != nil {
		return &ValidationError{Field: "session", Message: err.Error(), Err: err}
	}

	history := make([]*schema.OutfitLayer, 0, len(snap.Layers))
	for i := range snap.Layers {
		history = append(history, snap.Layers[i].Clone())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = history
	t.cursor = snap.Cursor
	t.poses = append([]string(nil), snap.Poses...)
	t.activePose = snap.ActivePoseIndex
	return nil
}

func cloneLayers(layers []*schema.OutfitLayer) []*schema.OutfitLayer {
	out := make([]*schema.OutfitLayer, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.Clone())
	}
	return out
}
