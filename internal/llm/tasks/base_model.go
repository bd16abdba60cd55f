package tasks

import (
	"context"
	"fmt"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// ExecuteBaseModelTask turns a raw user photo into the canonical base model image.
func ExecuteBaseModelTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *BaseModelInput,
) (schema.ImageRef, error) {
	if err := validateImage("photo", input.Photo); err != nil {
		return "", fmt.Errorf("base model task failed: %w", err)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildBaseModelPrompt(),
		Images: []schema.ImageRef{input.Photo},
	})
	if err != nil {
		return "", fmt.Errorf("base model task failed: %w", err)
	}

	return img, nil
}
