package tasks

import (
	"fitroom/pkg/schema"
)

// Base Model Task Types

// BaseModelInput is the input for turning a user photo into the base model.
type BaseModelInput struct {
	Photo schema.ImageRef `json:"photo"`
}

// Try-On Task Types

// TryOnInput is the input for a single-garment try-on.
type TryOnInput struct {
	Model   schema.ImageRef `json:"model"`
	Garment schema.ImageRef `json:"garment"`
}

// MultiTryOnGarment is one garment of a multi-garment composition.
type MultiTryOnGarment struct {
	Name  string          `json:"name"`
	Image schema.ImageRef `json:"image"`
}

// MultiTryOnInput is the input for a multi-garment try-on.
type MultiTryOnInput struct {
	Model    schema.ImageRef     `json:"model"`
	Garments []MultiTryOnGarment `json:"garments"`
}

// Variation Task Types

// PoseInput is the input for a pose variation.
type PoseInput struct {
	Reference schema.ImageRef `json:"reference"`
	Pose      string          `json:"pose"`
}

// SceneInput is the input for a scene variation.
type SceneInput struct {
	Reference schema.ImageRef `json:"reference"`
	Scene     string          `json:"scene"`
}

// Garment Generation Task Types

// GarmentGenInput is the input for generating a garment from text.
type GarmentGenInput struct {
	Description string `json:"description"`
}

// Style Analysis Task Types

// StyleAnalysisInput is the input for a stylist critique.
type StyleAnalysisInput struct {
	Image schema.ImageRef `json:"image"`
}
