package llm

import (
	"fmt"
	"time"
)

// Config contains configuration for the LLM client.
type Config struct {
	// APIKey is the OpenRouter API key
	APIKey string

	// BaseURL is the OpenRouter API base URL
	// Default: https://openrouter.ai/api/v1
	BaseURL string

	// DefaultModel is the text model used for structured output
	// Example: google/gemini-2.5-flash
	DefaultModel string

	// ImageModel is the image-capable model used for renders
	// Default: google/gemini-2.5-flash-image-preview
	ImageModel string

	// Timeout is the HTTP request timeout
	// Default: 90 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of validation retries
	// Default: 3
	MaxRetries int
}

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultImageModel renders every try-on, pose and scene image.
const DefaultImageModel = "google/gemini-2.5-flash-image-preview"

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BaseURL is required")
	}

	if c.DefaultModel == "" {
		return fmt.Errorf("DefaultModel is required")
	}

	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.ImageModel == "" {
		c.ImageModel = DefaultImageModel
	}

	if c.Timeout == 0 {
		c.Timeout = 90 * time.Second
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// ModelConfig contains configuration for a specific model.
type ModelConfig struct {
	// Name is the OpenRouter model identifier
	Name string

	// OutputsImages indicates if the model can return image parts
	OutputsImages bool

	// ContextWindow is the maximum context size in tokens
	ContextWindow int

	// Description is a human-readable description
	Description string
}

// DefaultModels returns the default model configurations.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"google/gemini-2.5-flash-image-preview": {
			Name:          "google/gemini-2.5-flash-image-preview",
			OutputsImages: true,
			ContextWindow: 32768,
			Description:   "Gemini 2.5 Flash Image - image editing and generation",
		},
		"google/gemini-2.5-flash": {
			Name:          "google/gemini-2.5-flash",
			OutputsImages: false,
			ContextWindow: 1000000,
			Description:   "Gemini 2.5 Flash - fast multimodal analysis",
		},
	}
}

