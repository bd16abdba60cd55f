package schema

import "time"

// StudioEvent is the interface for all studio journal event types.
type StudioEvent interface {
	EventType() string
	EventID() string
	Timestamp() time.Time
}

// BaseModelCreated records the base layer being seeded.
type BaseModelCreated struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	LayerID    string    `json:"layer_id" yaml:"layer_id"`
	Pose       string    `json:"pose" yaml:"pose"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *BaseModelCreated) EventType() string    { return "BaseModelCreated" }
func (e *BaseModelCreated) EventID() string      { return e.EventID_ }
func (e *BaseModelCreated) Timestamp() time.Time { return e.Timestamp_ }

// LayerAppended records a garment layer being appended to the timeline.
type LayerAppended struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	LayerID    string    `json:"layer_id" yaml:"layer_id"`
	GarmentIDs []string  `json:"garment_ids" yaml:"garment_ids"`
	Index      int       `json:"index" yaml:"index"`
	Discarded  int       `json:"discarded" yaml:"discarded"` // Redo-able layers dropped by the append
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *LayerAppended) EventType() string    { return "LayerAppended" }
func (e *LayerAppended) EventID() string      { return e.EventID_ }
func (e *LayerAppended) Timestamp() time.Time { return e.Timestamp_ }

// LayerRemoved records an explicit removal of a non-base layer.
type LayerRemoved struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	LayerID    string    `json:"layer_id" yaml:"layer_id"`
	Index      int       `json:"index" yaml:"index"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *LayerRemoved) EventType() string    { return "LayerRemoved" }
func (e *LayerRemoved) EventID() string      { return e.EventID_ }
func (e *LayerRemoved) Timestamp() time.Time { return e.Timestamp_ }

// CursorMoved records an undo or redo.
type CursorMoved struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	From       int       `json:"from" yaml:"from"`
	To         int       `json:"to" yaml:"to"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *CursorMoved) EventType() string    { return "CursorMoved" }
func (e *CursorMoved) EventID() string      { return e.EventID_ }
func (e *CursorMoved) Timestamp() time.Time { return e.Timestamp_ }

// PoseRendered records a new pose render cached on the active layer.
type PoseRendered struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	LayerID    string    `json:"layer_id" yaml:"layer_id"`
	Pose       string    `json:"pose" yaml:"pose"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *PoseRendered) EventType() string    { return "PoseRendered" }
func (e *PoseRendered) EventID() string      { return e.EventID_ }
func (e *PoseRendered) Timestamp() time.Time { return e.Timestamp_ }

// SceneChanged records a scene render overwriting the active pose image.
type SceneChanged struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	LayerID    string    `json:"layer_id" yaml:"layer_id"`
	Pose       string    `json:"pose" yaml:"pose"`
	OldScene   string    `json:"old_scene" yaml:"old_scene"`
	NewScene   string    `json:"new_scene" yaml:"new_scene"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *SceneChanged) EventType() string    { return "SceneChanged" }
func (e *SceneChanged) EventID() string      { return e.EventID_ }
func (e *SceneChanged) Timestamp() time.Time { return e.Timestamp_ }

// TimelineReset records a start over.
type TimelineReset struct {
	EventID_   string    `json:"event_id" yaml:"event_id"`
	Layers     int       `json:"layers" yaml:"layers"`
	Timestamp_ time.Time `json:"timestamp" yaml:"timestamp"`
}

func (e *TimelineReset) EventType() string    { return "TimelineReset" }
func (e *TimelineReset) EventID() string      { return e.EventID_ }
func (e *TimelineReset) Timestamp() time.Time { return e.Timestamp_ }
