package tasks

import (
	"context"
	"fmt"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// ExecuteTryOnTask dresses the model in a single garment.
func ExecuteTryOnTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *TryOnInput,
) (schema.ImageRef, error) {
	if err := validateImage("model", input.Model); err != nil {
		return "", fmt.Errorf("try-on task failed: %w", err)
	}
	if err := validateImage("garment", input.Garment); err != nil {
		return "", fmt.Errorf("try-on task failed: %w", err)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildTryOnPrompt(),
		Images: []schema.ImageRef{input.Model, input.Garment},
	})
	if err != nil {
		return "", fmt.Errorf("try-on task failed: %w", err)
	}

	return img, nil
}

// ExecuteMultiTryOnTask dresses the model in several garments in one render.
// Garment images are attached after the model image in submission order.
func ExecuteMultiTryOnTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *MultiTryOnInput,
) (schema.ImageRef, error) {
	if len(input.Garments) == 0 {
		return "", fmt.Errorf("multi try-on task failed: at least one garment is required")
	}
	if len(input.Garments) > schema.MultiGarmentLimit {
		return "", fmt.Errorf("multi try-on task failed: at most %d garments per render", schema.MultiGarmentLimit)
	}
	if err := validateImage("model", input.Model); err != nil {
		return "", fmt.Errorf("multi try-on task failed: %w", err)
	}

	images := make([]schema.ImageRef, 0, len(input.Garments)+1)
	images = append(images, input.Model)
	names := make([]string, 0, len(input.Garments))
	for i, g := range input.Garments {
		if err := validateImage(fmt.Sprintf("garment %d", i+1), g.Image); err != nil {
			return "", fmt.Errorf("multi try-on task failed: %w", err)
		}
		images = append(images, g.Image)
		names = append(names, g.Name)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildMultiTryOnPrompt(names),
		Images: images,
	})
	if err != nil {
		return "", fmt.Errorf("multi try-on task failed: %w", err)
	}

	return img, nil
}
