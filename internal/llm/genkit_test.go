package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"fitroom/pkg/schema"
)

func TestGenkitRenderer(t *testing.T) {
	ctx := context.Background()

	t.Run("model is registered", func(t *testing.T) {
		g := RegisterImageModel(ctx, &MockRenderer{Image: "data:image/png;base64,AAAA"})
		if genkit.LookupModel(g, GenkitImageModel) == nil {
			t.Fatal("image model not registered")
		}
	})

	t.Run("renders through backend", func(t *testing.T) {
		backend := &MockRenderer{Image: "data:image/png;base64,UkVTVUxU"}
		renderer := NewGenkitRenderer(ctx, backend)

		img, err := renderer.Render(ctx, &RenderRequest{
			Prompt: "wear it",
			Images: []schema.ImageRef{"data:image/png;base64,TU9ERUw=", "data:image/webp;base64,R0FSTQ=="},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if img != backend.Image {
			t.Errorf("unexpected image %s", img)
		}

		req := backend.LastRequest()
		if req == nil {
			t.Fatal("backend not called")
		}
		if req.Prompt != "wear it" {
			t.Errorf("prompt not forwarded: %q", req.Prompt)
		}
		if len(req.Images) != 2 || req.Images[1] != "data:image/webp;base64,R0FSTQ==" {
			t.Errorf("images not forwarded in order: %v", req.Images)
		}
	})

	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{"blocked", NewBlockedError("OTHER", ""), ErrorTypeBlocked},
		{"safety", NewSafetyError("IMAGE_SAFETY"), ErrorTypeSafety},
		{"empty", NewEmptyResultError(""), ErrorTypeEmpty},
		{"transport", errors.New("connection reset"), ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := NewGenkitRenderer(ctx, &MockRenderer{Error: tt.err})
			_, err := renderer.Render(ctx, &RenderRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := ErrorType(err); got != tt.wantType {
				t.Errorf("ErrorType() = %q, want %q (%v)", got, tt.wantType, err)
			}
		})
	}
}
