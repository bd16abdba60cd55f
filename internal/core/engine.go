package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"fitroom/internal/llm/tasks"
	"fitroom/pkg/schema"

	"golang.org/x/sync/semaphore"
)

const registrationTimeout = 30 * time.Second

// Wardrobe is the garment catalog new garments are registered into.
type Wardrobe interface {
	Add(ctx context.Context, item schema.WardrobeItem) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]schema.WardrobeItem, error)
	Has(ctx context.Context, id string) (bool, error)
}

// EventSink receives studio events as they happen.
type EventSink interface {
	Append(events []schema.StudioEvent) error
}

// GarmentUpload is a garment image together with its catalog entry.
type GarmentUpload struct {
	Item  schema.WardrobeItem
	Image schema.ImageRef
}

// Engine runs generation requests against a Studio.
//
// At most one generation is in flight. Requests arriving while one is pending
// fail with ErrBusy instead of queueing, and so do undo, redo, layer removal
// and start over, so a late result can never land on a layer the user has
// moved away from.
type Engine struct {
	synth    Synthesizer
	studio   *Studio
	wardrobe Wardrobe
	events   EventSink
	logger   Logger

	flight *semaphore.Weighted

	registrations    sync.WaitGroup
	registrationErrs chan error
}

// NewEngine creates an engine. wardrobe may be nil.
func NewEngine(synth Synthesizer, studio *Studio, wardrobe Wardrobe, logger Logger) *Engine {
	return &Engine{
		synth:            synth,
		studio:           studio,
		wardrobe:         wardrobe,
		logger:           logger,
		flight:           semaphore.NewWeighted(1),
		registrationErrs: make(chan error, 16),
	}
}

// SetEventSink journals every state change to sink.
func (e *Engine) SetEventSink(sink EventSink) {
	e.events = sink
}

// Studio returns the state the engine operates on.
func (e *Engine) Studio() *Studio {
	return e.studio
}

// RegistrationErrors reports failed background wardrobe registrations.
// Errors are dropped when nobody drains the channel.
func (e *Engine) RegistrationErrors() <-chan error {
	return e.registrationErrs
}

// Wait blocks until background wardrobe registrations have finished.
func (e *Engine) Wait() {
	e.registrations.Wait()
}

// CreateBaseModel renders the user's photo as the base model and starts a
// new timeline from it.
func (e *Engine) CreateBaseModel(ctx context.Context, photo schema.ImageRef) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	tl := e.studio.Timeline
	if tl.IsActive() {
		return ErrTimelineActive
	}
	if photo.IsZero() {
		return ErrNoSelection
	}

	e.studio.DismissError()
	e.logger.Info("creating base model", "mime", photo.MimeType())

	img, err := e.synth.SynthesizeBaseModel(ctx, &tasks.BaseModelInput{Photo: photo})
	if err != nil {
		return e.fail("create model", err)
	}

	layer, err := tl.Initialize(img)
	if err != nil {
		return e.fail("create model", err)
	}
	e.studio.setScene(e.studio.defaultScene)

	evtID, _ := schema.NewEventID()
	e.emit(&schema.BaseModelCreated{
		EventID_:   evtID,
		LayerID:    layer.ID,
		Pose:       tl.Poses()[0],
		Timestamp_: time.Now(),
	})
	return nil
}

// ApplyGarment dresses the displayed image in one garment and appends the
// result as a new layer. Garments already in the active outfit are ignored.
func (e *Engine) ApplyGarment(ctx context.Context, upload GarmentUpload) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	tl := e.studio.Timeline
	current, ok := tl.CurrentImage()
	if !ok {
		return ErrNotReady
	}
	if upload.Item.ID == "" {
		return &ValidationError{Field: "garment", Message: "garment id is required"}
	}
	if tl.IsWorn(upload.Item.ID) {
		return ErrAlreadyWorn
	}

	e.studio.DismissError()
	e.logger.Info("applying garment", "garment_id", upload.Item.ID, "pose", tl.ActivePoseIndex())

	img, err := e.synth.ApplyGarment(ctx, &tasks.TryOnInput{Model: current, Garment: upload.Image})
	if err != nil {
		return e.fail("apply garment", err)
	}

	item := upload.Item
	if !upload.Image.IsZero() {
		item.URL = string(upload.Image)
	}

	layerID, _ := schema.NewLayerID()
	layer := &schema.OutfitLayer{ID: layerID, Garment: &item}
	layer.PoseImages.Set(tl.Poses()[tl.ActivePoseIndex()], img)

	if err := e.appendLayer(layer); err != nil {
		return e.fail("apply garment", err)
	}

	e.registerGarment(ctx, item)
	return nil
}

// ApplyGarments dresses the displayed image in several garments with a single
// render and appends the result as one layer.
func (e *Engine) ApplyGarments(ctx context.Context, uploads []GarmentUpload) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	if len(uploads) == 0 {
		return ErrNoSelection
	}
	if len(uploads) > schema.MultiGarmentLimit {
		return &ValidationError{
			Field:   "garments",
			Message: fmt.Sprintf("at most %d garments can be combined", schema.MultiGarmentLimit),
		}
	}

	tl := e.studio.Timeline
	current, ok := tl.CurrentImage()
	if !ok {
		return ErrNotReady
	}

	e.studio.DismissError()

	garments := make([]tasks.MultiTryOnGarment, 0, len(uploads))
	items := make([]schema.WardrobeItem, 0, len(uploads))
	for _, u := range uploads {
		garments = append(garments, tasks.MultiTryOnGarment{Name: u.Item.Name, Image: u.Image})
		items = append(items, u.Item)
	}
	e.logger.Info("applying outfit", "garments", len(items))

	img, err := e.synth.ApplyGarments(ctx, &tasks.MultiTryOnInput{Model: current, Garments: garments})
	if err != nil {
		return e.fail("apply outfit", err)
	}

	primary := items[0]
	layerID, _ := schema.NewLayerID()
	layer := &schema.OutfitLayer{ID: layerID, Garment: &primary, Garments: items}
	layer.PoseImages.Set(tl.Poses()[tl.ActivePoseIndex()], img)

	if err := e.appendLayer(layer); err != nil {
		return e.fail("apply outfit", err)
	}
	return nil
}

// ChangePose shows the active layer in another pose, rendering it first if it
// has not been rendered yet. The new pose is shown immediately and rolled back
// if the render fails.
func (e *Engine) ChangePose(ctx context.Context, index int) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	tl := e.studio.Timeline
	if !tl.IsActive() {
		return ErrNotReady
	}
	poses := tl.Poses()
	if index < 0 || index >= len(poses) {
		return fmt.Errorf("%w: %d", ErrPoseIndex, index)
	}
	if index == tl.ActivePoseIndex() {
		return nil
	}

	e.studio.DismissError()
	pose := poses[index]

	layer, _ := tl.ActiveLayer()
	if layer.PoseImages.Has(pose) {
		e.logger.Debug("pose cached", "layer_id", layer.ID, "pose", pose)
		return tl.SetActivePoseIndex(index)
	}

	reference, _ := tl.CurrentImage()
	transition, err := beginPoseTransition(tl, index)
	if err != nil {
		return err
	}

	e.logger.Info("rendering pose", "layer_id", layer.ID, "pose", pose)
	img, err := e.synth.VaryPose(ctx, &tasks.PoseInput{Reference: reference, Pose: pose})
	if err != nil {
		transition.revert()
		return e.fail("change pose", err)
	}

	updated, err := transition.commit(pose, img)
	if err != nil {
		transition.revert()
		return e.fail("change pose", err)
	}

	evtID, _ := schema.NewEventID()
	e.emit(&schema.PoseRendered{
		EventID_:   evtID,
		LayerID:    updated.ID,
		Pose:       pose,
		Timestamp_: time.Now(),
	})
	return nil
}

// ChangeScene re-renders the displayed image in another scene. The result
// replaces the active layer's render for the current pose.
func (e *Engine) ChangeScene(ctx context.Context, scene string) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	scene = strings.TrimSpace(scene)
	if scene == "" {
		return ErrNoSelection
	}

	tl := e.studio.Timeline
	current, ok := tl.CurrentImage()
	if !ok {
		return ErrNotReady
	}
	previous := e.studio.Scene()
	if scene == previous {
		return nil
	}

	e.studio.DismissError()
	e.logger.Info("changing scene", "from", previous, "to", scene)

	img, err := e.synth.VaryScene(ctx, &tasks.SceneInput{Reference: current, Scene: scene})
	if err != nil {
		return e.fail("change scene", err)
	}

	pose := tl.Poses()[tl.ActivePoseIndex()]
	layer, err := tl.SetPoseImage(pose, img)
	if err != nil {
		return e.fail("change scene", err)
	}
	e.studio.setScene(scene)

	evtID, _ := schema.NewEventID()
	e.emit(&schema.SceneChanged{
		EventID_:   evtID,
		LayerID:    layer.ID,
		Pose:       pose,
		OldScene:   previous,
		NewScene:   scene,
		Timestamp_: time.Now(),
	})
	return nil
}

// Undo steps back one layer.
func (e *Engine) Undo() error {
	return e.moveCursor((*Timeline).Undo)
}

// Redo steps forward one layer.
func (e *Engine) Redo() error {
	return e.moveCursor((*Timeline).Redo)
}

func (e *Engine) moveCursor(move func(*Timeline) bool) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	e.studio.DismissError()

	tl := e.studio.Timeline
	from := tl.Cursor()
	if !move(tl) {
		return nil
	}

	evtID, _ := schema.NewEventID()
	e.emit(&schema.CursorMoved{
		EventID_:   evtID,
		From:       from,
		To:         tl.Cursor(),
		Timestamp_: time.Now(),
	})
	return nil
}

// RemoveLayer deletes the garment layer at index. The base model cannot be
// removed.
func (e *Engine) RemoveLayer(index int) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	e.studio.DismissError()

	removed, err := e.studio.Timeline.RemoveLayer(index)
	if err != nil {
		var se *StructureError
		if errors.As(err, &se) {
			e.studio.setError(UserMessage(err))
		}
		return err
	}

	evtID, _ := schema.NewEventID()
	e.emit(&schema.LayerRemoved{
		EventID_:   evtID,
		LayerID:    removed.ID,
		Index:      index,
		Timestamp_: time.Now(),
	})
	return nil
}

// StartOver discards the timeline so a new base model can be created.
func (e *Engine) StartOver() error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	n := e.studio.reset()
	e.logger.Info("studio reset", "layers", n)

	evtID, _ := schema.NewEventID()
	e.emit(&schema.TimelineReset{
		EventID_:   evtID,
		Layers:     n,
		Timestamp_: time.Now(),
	})
	return nil
}

// Resume replaces the studio with a saved session.
func (e *Engine) Resume(snap *schema.SessionSnapshot) error {
	release, err := e.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := e.studio.Restore(snap); err != nil {
		return err
	}
	e.logger.Info("session restored", "layers", len(snap.Layers), "cursor", snap.Cursor)
	return nil
}

// CreateGarment renders a garment from a text description and adds it to the
// wardrobe. The timeline is not touched.
func (e *Engine) CreateGarment(ctx context.Context, name, description string) (*schema.WardrobeItem, error) {
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(description); n < schema.DescriptionMin || n > schema.DescriptionMax {
		return nil, &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("must be %d-%d characters", schema.DescriptionMin, schema.DescriptionMax),
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = description
	}
	name = truncateName(name, schema.GarmentNameMax)

	e.studio.DismissError()
	e.logger.Info("designing garment", "name", name)

	img, err := e.synth.SynthesizeGarment(ctx, &tasks.GarmentGenInput{Description: description})
	if err != nil {
		return nil, e.fail("design garment", err)
	}

	id, err := schema.NewGarmentID()
	if err != nil {
		return nil, e.fail("design garment", err)
	}
	item := schema.WardrobeItem{ID: id, Name: name, URL: string(img)}

	if e.wardrobe != nil {
		if err := e.wardrobe.Add(ctx, item); err != nil {
			e.logger.Warn("wardrobe add failed", "garment_id", id, "error", err)
		}
	}
	return &item, nil
}

// truncateName cuts name to at most limit bytes without splitting a rune.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}

// AnalyzeStyle critiques the displayed outfit.
func (e *Engine) AnalyzeStyle(ctx context.Context) (*schema.StyleAnalysis, error) {
	current, ok := e.studio.Timeline.CurrentImage()
	if !ok {
		return nil, ErrNotReady
	}

	e.studio.DismissError()

	analysis, err := e.synth.AnalyzeStyle(ctx, &tasks.StyleAnalysisInput{Image: current})
	if err != nil {
		return nil, e.fail("analyze style", err)
	}
	return analysis, nil
}

// acquire claims the single generation slot.
func (e *Engine) acquire() (func(), error) {
	if !e.flight.TryAcquire(1) {
		return nil, ErrBusy
	}
	return func() { e.flight.Release(1) }, nil
}

// fail records err in the error slot and returns it classified.
func (e *Engine) fail(operation string, err error) error {
	ge := newGenerationError(operation, err)
	e.studio.setError(UserMessage(ge))
	e.logger.Error("generation failed", "operation", operation, "kind", ge.Kind, "error", err)
	return ge
}

func (e *Engine) appendLayer(layer *schema.OutfitLayer) error {
	tl := e.studio.Timeline
	discarded, err := tl.AppendLayer(layer)
	if err != nil {
		return err
	}
	if discarded > 0 {
		e.logger.Debug("redo layers discarded", "count", discarded)
	}

	evtID, _ := schema.NewEventID()
	e.emit(&schema.LayerAppended{
		EventID_:   evtID,
		LayerID:    layer.ID,
		GarmentIDs: layer.GarmentIDs(),
		Index:      tl.Cursor(),
		Discarded:  discarded,
		Timestamp_: time.Now(),
	})
	return nil
}

// registerGarment adds item to the wardrobe in the background if it is new.
func (e *Engine) registerGarment(ctx context.Context, item schema.WardrobeItem) {
	if e.wardrobe == nil {
		return
	}

	e.registrations.Add(1)
	go func() {
		defer e.registrations.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), registrationTimeout)
		defer cancel()

		if err := e.register(ctx, item); err != nil {
			e.logger.Warn("wardrobe registration failed", "garment_id", item.ID, "error", err)
			select {
			case e.registrationErrs <- fmt.Errorf("register %s: %w", item.ID, err):
			default:
			}
		}
	}()
}

func (e *Engine) register(ctx context.Context, item schema.WardrobeItem) error {
	known, err := e.wardrobe.Has(ctx, item.ID)
	if err != nil {
		return err
	}
	if known {
		return nil
	}
	if err := e.wardrobe.Add(ctx, item); err != nil {
		return err
	}
	e.logger.Debug("garment registered", "garment_id", item.ID)
	return nil
}

func (e *Engine) emit(events ...schema.StudioEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(events); err != nil {
		e.logger.Warn("journal append failed", "error", err)
	}
}
