package tasks

import (
	"context"
	"fmt"
	"strings"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// ExecuteGarmentGenTask generates a garment product image from a text description.
func ExecuteGarmentGenTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *GarmentGenInput,
) (schema.ImageRef, error) {
	description := strings.TrimSpace(input.Description)
	if len(description) < schema.DescriptionMin || len(description) > schema.DescriptionMax {
		return "", fmt.Errorf("garment generation task failed: description must be %d-%d characters",
			schema.DescriptionMin, schema.DescriptionMax)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildGarmentPrompt(description),
	})
	if err != nil {
		return "", fmt.Errorf("garment generation task failed: %w", err)
	}

	return img, nil
}
