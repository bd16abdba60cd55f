package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"fitroom/pkg/schema"
)

// GenkitImageModel is the registry name of the OpenRouter image model.
const GenkitImageModel = "openrouter/image"

// RegisterImageModel registers backend as a Genkit model provider so renders
// flow through the Genkit model pipeline.
func RegisterImageModel(ctx context.Context, backend Renderer) *genkit.Genkit {
	g := genkit.Init(ctx)

	genkit.DefineModel(
		g,
		GenkitImageModel,
		&ai.ModelOptions{
			Label: "Image renderer (via OpenRouter)",
			Supports: &ai.ModelSupports{
				Media:     true,
				Multiturn: false,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			renderReq := &RenderRequest{}
			var prompt []string
			for _, msg := range req.Messages {
				for _, part := range msg.Content {
					switch {
					case part.IsMedia():
						renderReq.Images = append(renderReq.Images, schema.ImageRef(part.Text))
					case part.IsText():
						prompt = append(prompt, part.Text)
					}
				}
			}
			renderReq.Prompt = strings.Join(prompt, "\n")

			resp := &ai.ModelResponse{
				Request: req,
				Message: &ai.Message{Role: ai.RoleModel},
			}

			image, err := backend.Render(ctx, renderReq)
			if err != nil {
				var llmErr *LLMError
				if !errors.As(err, &llmErr) {
					return nil, err
				}
				// Refusals are reported as finish reasons, not transport failures
				switch llmErr.Type {
				case ErrorTypeBlocked:
					resp.FinishReason = ai.FinishReasonBlocked
					resp.FinishMessage = llmErr.Reason
					return resp, nil
				case ErrorTypeSafety:
					resp.FinishReason = ai.FinishReasonOther
					resp.FinishMessage = llmErr.Reason
					return resp, nil
				case ErrorTypeEmpty:
					resp.FinishReason = ai.FinishReasonStop
					return resp, nil
				}
				return nil, err
			}

			resp.FinishReason = ai.FinishReasonStop
			resp.Message.Content = []*ai.Part{ai.NewMediaPart(image.MimeType(), string(image))}
			return resp, nil
		},
	)

	return g
}

// GenkitRenderer renders through a Genkit registry.
type GenkitRenderer struct {
	g *genkit.Genkit
}

// Verify interface compliance at compile time
var _ Renderer = (*GenkitRenderer)(nil)

// NewGenkitRenderer registers backend with Genkit and returns a renderer using it.
func NewGenkitRenderer(ctx context.Context, backend Renderer) *GenkitRenderer {
	return &GenkitRenderer{g: RegisterImageModel(ctx, backend)}
}

// Render builds a Genkit request from req and returns the first media part of the reply.
func (r *GenkitRenderer) Render(ctx context.Context, req *RenderRequest) (schema.ImageRef, error) {
	model := genkit.LookupModel(r.g, GenkitImageModel)
	if model == nil {
		return "", fmt.Errorf("genkit model %s not registered", GenkitImageModel)
	}

	parts := []*ai.Part{ai.NewTextPart(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, ai.NewMediaPart(img.MimeType(), string(img)))
	}

	resp, err := model.Generate(ctx, &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(parts...)},
	}, nil)
	if err != nil {
		var llmErr *LLMError
		if errors.As(err, &llmErr) {
			return "", err
		}
		return "", NewNetworkError(err)
	}

	switch resp.FinishReason {
	case ai.FinishReasonBlocked:
		return "", NewBlockedError(resp.FinishMessage, "")
	case ai.FinishReasonOther:
		return "", NewSafetyError(resp.FinishMessage)
	}

	var text []string
	if resp.Message != nil {
		for _, part := range resp.Message.Content {
			if part.IsMedia() && part.Text != "" {
				return schema.ImageRef(part.Text), nil
			}
			if part.IsText() {
				text = append(text, part.Text)
			}
		}
	}

	return "", NewEmptyResultError(strings.TrimSpace(strings.Join(text, " ")))
}
