package core

import (
	"context"
	"sync"

	"fitroom/internal/llm"
	"fitroom/internal/llm/tasks"
	"fitroom/pkg/schema"
)

// Synthesizer abstracts the image and analysis capabilities for testability.
type Synthesizer interface {
	SynthesizeBaseModel(ctx context.Context, input *tasks.BaseModelInput) (schema.ImageRef, error)
	ApplyGarment(ctx context.Context, input *tasks.TryOnInput) (schema.ImageRef, error)
	ApplyGarments(ctx context.Context, input *tasks.MultiTryOnInput) (schema.ImageRef, error)
	VaryPose(ctx context.Context, input *tasks.PoseInput) (schema.ImageRef, error)
	VaryScene(ctx context.Context, input *tasks.SceneInput) (schema.ImageRef, error)
	SynthesizeGarment(ctx context.Context, input *tasks.GarmentGenInput) (schema.ImageRef, error)
	AnalyzeStyle(ctx context.Context, input *tasks.StyleAnalysisInput) (*schema.StyleAnalysis, error)
}

// RealSynthesizer implements Synthesizer with model calls.
type RealSynthesizer struct {
	renderer llm.Renderer
	client   *llm.Client
}

// NewRealSynthesizer creates a Synthesizer that renders through renderer and
// analyzes through client. A nil renderer renders through client directly.
func NewRealSynthesizer(client *llm.Client, renderer llm.Renderer) *RealSynthesizer {
	if renderer == nil {
		renderer = client
	}
	return &RealSynthesizer{renderer: renderer, client: client}
}

// Synthesis methods delegate to the task functions.
func (s *RealSynthesizer) SynthesizeBaseModel(ctx context.Context, input *tasks.BaseModelInput) (schema.ImageRef, error) {
	return tasks.ExecuteBaseModelTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) ApplyGarment(ctx context.Context, input *tasks.TryOnInput) (schema.ImageRef, error) {
	return tasks.ExecuteTryOnTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) ApplyGarments(ctx context.Context, input *tasks.MultiTryOnInput) (schema.ImageRef, error) {
	return tasks.ExecuteMultiTryOnTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) VaryPose(ctx context.Context, input *tasks.PoseInput) (schema.ImageRef, error) {
	return tasks.ExecutePoseTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) VaryScene(ctx context.Context, input *tasks.SceneInput) (schema.ImageRef, error) {
	return tasks.ExecuteSceneTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) SynthesizeGarment(ctx context.Context, input *tasks.GarmentGenInput) (schema.ImageRef, error) {
	return tasks.ExecuteGarmentGenTask(s.renderer, ctx, input)
}

func (s *RealSynthesizer) AnalyzeStyle(ctx context.Context, input *tasks.StyleAnalysisInput) (*schema.StyleAnalysis, error) {
	return tasks.ExecuteStyleAnalysisTask(s.client, ctx, input)
}

// MockSynthesizer implements Synthesizer for testing with canned responses.
//
// When Gate is non-nil every call signals Started and then blocks until Gate
// yields a value, is closed, or ctx is done.
type MockSynthesizer struct {
	BaseModelOutput  schema.ImageRef
	TryOnOutput      schema.ImageRef
	MultiTryOnOutput schema.ImageRef
	PoseOutput       schema.ImageRef
	SceneOutput      schema.ImageRef
	GarmentOutput    schema.ImageRef
	AnalysisOutput   *schema.StyleAnalysis

	BaseModelError  error
	TryOnError      error
	MultiTryOnError error
	PoseError       error
	SceneError      error
	GarmentError    error
	AnalysisError   error

	Gate    chan struct{}
	Started chan struct{}

	mu sync.Mutex

	BaseModelCalls  int
	TryOnCalls      int
	MultiTryOnCalls int
	PoseCalls       int
	SceneCalls      int
	GarmentCalls    int
	AnalysisCalls   int

	LastTryOn      *tasks.TryOnInput
	LastMultiTryOn *tasks.MultiTryOnInput
	LastPose       *tasks.PoseInput
	LastScene      *tasks.SceneInput
}

// NewMockSynthesizer creates a mock with default successful responses.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		BaseModelOutput:  "data:image/png;base64,QkFTRQ==",
		TryOnOutput:      "data:image/png;base64,VFJZT04=",
		MultiTryOnOutput: "data:image/png;base64,TVVMVEk=",
		PoseOutput:       "data:image/png;base64,UE9TRQ==",
		SceneOutput:      "data:image/png;base64,U0NFTkU=",
		GarmentOutput:    "data:image/png;base64,R0FSTUVOVA==",
		AnalysisOutput: &schema.StyleAnalysis{
			Score:             82,
			Verdict:           "Sharp and relaxed",
			FitAnalysis:       "The tee sits well on the shoulders.",
			ColorCoordination: "Neutral palette with one accent.",
			Occasion:          "Weekend brunch",
			Accessory:         "A canvas tote",
		},
	}
}

// Calls returns the total number of capability invocations.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BaseModelCalls + m.TryOnCalls + m.MultiTryOnCalls + m.PoseCalls +
		m.SceneCalls + m.GarmentCalls + m.AnalysisCalls
}

// wait holds the call until the gate opens.
func (m *MockSynthesizer) wait(ctx context.Context) error {
	if m.Gate == nil {
		return nil
	}
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	select {
	case <-m.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockSynthesizer) SynthesizeBaseModel(ctx context.Context, input *tasks.BaseModelInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.BaseModelCalls++
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.BaseModelError != nil {
		return "", m.BaseModelError
	}
	return m.BaseModelOutput, nil
}

func (m *MockSynthesizer) ApplyGarment(ctx context.Context, input *tasks.TryOnInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.TryOnCalls++
	m.LastTryOn = input
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.TryOnError != nil {
		return "", m.TryOnError
	}
	return m.TryOnOutput, nil
}

func (m *MockSynthesizer) ApplyGarments(ctx context.Context, input *tasks.MultiTryOnInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.MultiTryOnCalls++
	m.LastMultiTryOn = input
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.MultiTryOnError != nil {
		return "", m.MultiTryOnError
	}
	return m.MultiTryOnOutput, nil
}

func (m *MockSynthesizer) VaryPose(ctx context.Context, input *tasks.PoseInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.PoseCalls++
	m.LastPose = input
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.PoseError != nil {
		return "", m.PoseError
	}
	return m.PoseOutput, nil
}

func (m *MockSynthesizer) VaryScene(ctx context.Context, input *tasks.SceneInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.SceneCalls++
	m.LastScene = input
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.SceneError != nil {
		return "", m.SceneError
	}
	return m.SceneOutput, nil
}

func (m *MockSynthesizer) SynthesizeGarment(ctx context.Context, input *tasks.GarmentGenInput) (schema.ImageRef, error) {
	m.mu.Lock()
	m.GarmentCalls++
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.GarmentError != nil {
		return "", m.GarmentError
	}
	return m.GarmentOutput, nil
}

func (m *MockSynthesizer) AnalyzeStyle(ctx context.Context, input *tasks.StyleAnalysisInput) (*schema.StyleAnalysis, error) {
	m.mu.Lock()
	m.AnalysisCalls++
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.AnalysisError != nil {
		return nil, m.AnalysisError
	}
	return m.AnalysisOutput, nil
}
