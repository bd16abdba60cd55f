package core

import (
	"sync"
	"time"

	"fitroom/pkg/schema"
)

// Studio is the in-memory state of one fitting session: the outfit timeline,
// the scene last applied and the single user-facing error slot.
type Studio struct {
	Timeline *Timeline

	mu           sync.Mutex
	scene        string
	defaultScene string
	errMsg       string
}

// NewStudio creates an empty studio.
func NewStudio(poses []string, defaultScene string) *Studio {
	return &Studio{
		Timeline:     NewTimeline(poses),
		scene:        defaultScene,
		defaultScene: defaultScene,
	}
}

// Scene returns the scene last applied.
func (s *Studio) Scene() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

func (s *Studio) setScene(scene string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = scene
}

// ErrorMessage returns the current user-facing error, or "".
func (s *Studio) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// DismissError clears the error slot.
func (s *Studio) DismissError() {
	s.setError("")
}

func (s *Studio) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

// reset empties the timeline and restores the default scene.
func (s *Studio) reset() int {
	n := s.Timeline.Reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = s.defaultScene
	s.errMsg = ""
	return n
}

// Snapshot captures the studio for saving.
func (s *Studio) Snapshot() *schema.SessionSnapshot {
	snap := s.Timeline.Snapshot()
	snap.SavedAt = time.Now()
	snap.Scene = s.Scene()
	return snap
}

// Restore replaces the studio with a saved one.
func (s *Studio) Restore(snap *schema.SessionSnapshot) error {
	if err := s.Timeline.Restore(snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = snap.Scene
	s.errMsg = ""
	return nil
}
