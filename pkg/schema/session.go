package schema

import (
	"fmt"
	"time"
)

// SessionSnapshot is a saved studio: the whole layer history, including
// redo-able layers past the cursor, plus the view state.
type SessionSnapshot struct {
	Version         string        `yaml:"version"`
	SavedAt         time.Time     `yaml:"saved_at"`
	Poses           []string      `yaml:"poses"`
	Layers          []OutfitLayer `yaml:"layers"`
	Cursor          int           `yaml:"cursor"`
	ActivePoseIndex int           `yaml:"active_pose_index"`
	Scene           string        `yaml:"scene"`
}

// SessionVersion is the current snapshot layout.
const SessionVersion = "v1"

// ValidateSessionSnapshot checks the structural invariants a restored
// timeline relies on.
func ValidateSessionSnapshot(s *SessionSnapshot) error {
	if len(s.Poses) == 0 {
		return fmt.Errorf("session has no poses")
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("session has no layers")
	}
	if !s.Layers[0].IsBase() {
		return fmt.Errorf("first layer must be the base model")
	}
	for i := range s.Layers {
		if i > 0 && s.Layers[i].IsBase() {
			return fmt.Errorf("layer %d has no garment", i)
		}
		if err := ValidateLayer(&s.Layers[i]); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	if s.Cursor < 0 || s.Cursor >= len(s.Layers) {
		return fmt.Errorf("cursor %d out of range [0,%d)", s.Cursor, len(s.Layers))
	}
	if s.ActivePoseIndex < 0 || s.ActivePoseIndex >= len(s.Poses) {
		return fmt.Errorf("active pose %d out of range [0,%d)", s.ActivePoseIndex, len(s.Poses))
	}
	return nil
}
