package core

import (
	"fmt"
	"os"
	"strings"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"

	"gopkg.in/yaml.v3"
)

// Rendering backends.
const (
	BackendDirect = "direct" // OpenRouter HTTP client
	BackendGenkit = "genkit" // same client behind a genkit model
)

// Config holds the application configuration.
type Config struct {
	LogLevel         string // DEBUG, INFO, WARN, ERROR
	LogFile          string // Rotating JSON log file; stderr when empty
	OpenRouterAPIKey string // Required for generation
	BaseURL          string
	DefaultModel     string // Text model for style analysis
	ImageModel       string // Image-output model for every render
	Backend          string
	Workspace        string // Directory holding wardrobe, sessions and journal
	CatalogPath      string // Optional YAML file overriding poses and scenes

	Poses  []string
	Scenes []string
}

// Catalog is the optional pose and scene list file.
type Catalog struct {
	Poses  []string `yaml:"poses"`
	Scenes []string `yaml:"scenes"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	cfg := &Config{
		LogLevel:         logLevel,
		LogFile:          os.Getenv("FITROOM_LOG_FILE"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		BaseURL:          getEnvOrDefault("OPENROUTER_BASE_URL", llm.DefaultBaseURL),
		DefaultModel:     getEnvOrDefault("DEFAULT_MODEL", "google/gemini-2.5-flash"),
		ImageModel:       getEnvOrDefault("IMAGE_MODEL", llm.DefaultImageModel),
		Backend:          getEnvOrDefault("FITROOM_BACKEND", BackendDirect),
		Workspace:        getEnvOrDefault("FITROOM_WORKSPACE", ".fitroom"),
		CatalogPath:      os.Getenv("FITROOM_CATALOG"),
		Poses:            append([]string(nil), schema.DefaultPoses...),
		Scenes:           append([]string(nil), schema.DefaultScenes...),
	}

	if cfg.CatalogPath != "" {
		if err := cfg.ApplyCatalog(cfg.CatalogPath); err != nil {
			return nil, err
		}
	}

	// API key is checked when a generation client is built, so that
	// wardrobe and journal commands work offline.

	return cfg, nil
}

// ApplyCatalog replaces poses and scenes with the ones listed in path.
// Lists missing from the file keep their current values.
func (c *Config) ApplyCatalog(path string) error {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	if len(catalog.Poses) > 0 {
		c.Poses = catalog.Poses
	}
	if len(catalog.Scenes) > 0 {
		c.Scenes = catalog.Scenes
	}
	return nil
}

// LoadCatalog reads a pose and scene catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &catalog, nil
}

// Validate checks the settings the studio cannot run without.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendDirect, BackendGenkit:
	default:
		return &ValidationError{Field: "backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if len(c.Poses) == 0 {
		return &ValidationError{Field: "poses", Message: "at least one pose is required"}
	}
	seen := make(map[string]bool, len(c.Poses))
	for _, p := range c.Poses {
		if strings.TrimSpace(p) == "" {
			return &ValidationError{Field: "poses", Message: "pose instruction cannot be empty"}
		}
		if seen[p] {
			return &ValidationError{Field: "poses", Message: fmt.Sprintf("duplicate pose %q", p)}
		}
		seen[p] = true
	}
	if c.Workspace == "" {
		return &ValidationError{Field: "workspace", Message: "workspace directory is required"}
	}
	return nil
}

// LLMConfig returns the generation client settings.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		APIKey:       c.OpenRouterAPIKey,
		BaseURL:      c.BaseURL,
		DefaultModel: c.DefaultModel,
		ImageModel:   c.ImageModel,
	}
}

// DefaultScene is the scene a fresh base model is rendered in.
func (c *Config) DefaultScene() string {
	if len(c.Scenes) == 0 {
		return ""
	}
	return c.Scenes[0]
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
