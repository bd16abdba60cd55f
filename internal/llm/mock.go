package llm

import (
	"context"
	"sync"

	"fitroom/pkg/schema"
)

// MockRenderer is a mock Renderer for testing.
type MockRenderer struct {
	Image schema.ImageRef // The image to return
	Error error           // Error to return (if any)

	mu       sync.Mutex
	Requests []*RenderRequest
}

// Render records the request and returns the canned image or error.
func (m *MockRenderer) Render(ctx context.Context, req *RenderRequest) (schema.ImageRef, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	return m.Image, nil
}

// LastRequest returns the most recent request, or nil.
func (m *MockRenderer) LastRequest() *RenderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

