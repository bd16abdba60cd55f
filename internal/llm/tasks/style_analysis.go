package tasks

import (
	"context"
	"fmt"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// ExecuteStyleAnalysisTask asks the text model for a stylist critique of an outfit image.
func ExecuteStyleAnalysisTask(
	client *llm.Client,
	ctx context.Context,
	input *StyleAnalysisInput,
) (*schema.StyleAnalysis, error) {
	if err := validateImage("outfit", input.Image); err != nil {
		return nil, fmt.Errorf("style analysis task failed: %w", err)
	}

	// Validation function
	validate := func(output *schema.StyleAnalysis) error {
		return schema.ValidateStyleAnalysis(output)
	}

	// Call LLM with retry
	result, err := llm.GenerateStructuredWithImages[schema.StyleAnalysis](
		client,
		ctx,
		"", // Use default model from config
		llm.BuildStyleAnalysisPrompt(),
		[]schema.ImageRef{input.Image},
		validate,
	)
	if err != nil {
		return nil, fmt.Errorf("style analysis task failed: %w", err)
	}

	return result, nil
}
