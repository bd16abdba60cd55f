package tasks

import (
	"context"
	"fmt"
	"strings"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// ExecutePoseTask re-renders the reference image in a different pose.
func ExecutePoseTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *PoseInput,
) (schema.ImageRef, error) {
	if strings.TrimSpace(input.Pose) == "" {
		return "", fmt.Errorf("pose task failed: pose instruction is required")
	}
	if err := validateImage("reference", input.Reference); err != nil {
		return "", fmt.Errorf("pose task failed: %w", err)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildPosePrompt(input.Pose),
		Images: []schema.ImageRef{input.Reference},
	})
	if err != nil {
		return "", fmt.Errorf("pose task failed: %w", err)
	}

	return img, nil
}

// ExecuteSceneTask re-renders the reference image against a new background.
func ExecuteSceneTask(
	renderer llm.Renderer,
	ctx context.Context,
	input *SceneInput,
) (schema.ImageRef, error) {
	if strings.TrimSpace(input.Scene) == "" {
		return "", fmt.Errorf("scene task failed: scene description is required")
	}
	if err := validateImage("reference", input.Reference); err != nil {
		return "", fmt.Errorf("scene task failed: %w", err)
	}

	img, err := renderer.Render(ctx, &llm.RenderRequest{
		Prompt: llm.BuildScenePrompt(input.Scene),
		Images: []schema.ImageRef{input.Reference},
	})
	if err != nil {
		return "", fmt.Errorf("scene task failed: %w", err)
	}

	return img, nil
}
