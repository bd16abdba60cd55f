package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fitroom/pkg/schema"
)

// Client is the LLM client for interacting with OpenRouter.
type Client struct {
	config *Config
	http   *http.Client
	models map[string]ModelConfig
}

// Verify interface compliance at compile time
var _ Renderer = (*Client)(nil)

// NewClient creates a new LLM client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		models: DefaultModels(),
	}, nil
}

// OpenRouterRequest represents a request to OpenRouter (OpenAI-compatible).
type OpenRouterRequest struct {
	Model      string          `json:"model"`
	Messages   []OpenRouterMsg `json:"messages"`
	Modalities []string        `json:"modalities,omitempty"`
}

// OpenRouterMsg represents a message in the conversation.
// Content is a plain string for text-only prompts and a []ContentPart
// when images are attached.
type OpenRouterMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference (data URL or https URL).
type ImageURL struct {
	URL string `json:"url"`
}

// OpenRouterResponse represents a response from OpenRouter.
type OpenRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				Type     string   `json:"type"`
				ImageURL ImageURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
		FinishReason       string `json:"finish_reason"`
		NativeFinishReason string `json:"native_finish_reason"`
	} `json:"choices"`
	Error *OpenRouterError `json:"error,omitempty"`
}

// OpenRouterError is the error object returned in-band or with non-200 statuses.
type OpenRouterError struct {
	Message  string `json:"message"`
	Code     any    `json:"code"`
	Metadata struct {
		Reasons      []string `json:"reasons"`
		FlaggedInput string   `json:"flagged_input"`
	} `json:"metadata"`
}

// RenderRequest asks an image model for a single still image.
type RenderRequest struct {
	// Model overrides Config.ImageModel when set
	Model string

	Prompt string

	// Images are attached in order after the prompt
	Images []schema.ImageRef
}

// Renderer produces one image per request.
type Renderer interface {
	Render(ctx context.Context, req *RenderRequest) (schema.ImageRef, error)
}

// SupportsImageOutput reports whether model is known to return images.
// Unknown models are assumed capable so custom deployments still work.
func (c *Client) SupportsImageOutput(model string) bool {
	cfg, ok := c.models[model]
	if !ok {
		return true
	}
	return cfg.OutputsImages
}

// Render sends a multimodal request and returns the first generated image.
func (c *Client) Render(ctx context.Context, req *RenderRequest) (schema.ImageRef, error) {
	model := req.Model
	if model == "" {
		model = c.config.ImageModel
	}
	if !c.SupportsImageOutput(model) {
		return "", fmt.Errorf("model %s cannot return images", model)
	}

	slog.Info("LLM render request",
		"model", model,
		"prompt_length", len(req.Prompt),
		"images", len(req.Images),
	)

	resp, err := c.post(ctx, OpenRouterRequest{
		Model:      model,
		Messages:   []OpenRouterMsg{buildUserMessage(req.Prompt, req.Images)},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", NewEmptyResultError("")
	}
	choice := resp.Choices[0]

	for _, img := range choice.Message.Images {
		if img.ImageURL.URL != "" {
			slog.Info("LLM render succeeded", "model", model)
			return schema.ImageRef(img.ImageURL.URL), nil
		}
	}

	if reason := stopReason(choice.FinishReason, choice.NativeFinishReason); reason != "" {
		return "", NewSafetyError(reason)
	}

	return "", NewEmptyResultError(strings.TrimSpace(choice.Message.Content))
}

// stopReason returns the reason a generation ended abnormally, or "" for a normal stop.
func stopReason(finish, native string) string {
	if finish == "content_filter" {
		if native != "" {
			return native
		}
		return "CONTENT_FILTER"
	}
	switch strings.ToUpper(native) {
	case "", "STOP", "MAX_TOKENS", "FINISH_REASON_UNSPECIFIED":
		return ""
	default:
		return strings.ToUpper(native)
	}
}

// GenerateStructured generates a structured output from the LLM with validation and retry
// T is the type of the structured output
// validate is an optional validation function that returns an error if the output is invalid.
func GenerateStructured[T any](
	client *Client,
	ctx context.Context,
	model string,
	prompt string,
	validate func(*T) error,
) (*T, error) {
	return GenerateStructuredWithImages(client, ctx, model, prompt, nil, validate)
}

// GenerateStructuredWithImages is GenerateStructured with images attached to the prompt.
func GenerateStructuredWithImages[T any](
	client *Client,
	ctx context.Context,
	model string,
	prompt string,
	images []schema.ImageRef,
	validate func(*T) error,
) (*T, error) {
	if model == "" {
		model = client.config.DefaultModel
	}

	originalPrompt := prompt
	var lastErr error

	for attempt := 1; attempt <= client.config.MaxRetries; attempt++ {
		slog.Info("LLM generation attempt",
			"attempt", attempt,
			"model", model,
			"prompt_length", len(prompt),
		)

		result, err := callOpenRouter[T](client, ctx, model, prompt, images)
		if err != nil {
			lastErr = err
			// Network/API errors are not retryable with modified prompt
			var llmErr *LLMError
			if errors.As(err, &llmErr) {
				switch llmErr.Type {
				case ErrorTypeNetwork, ErrorTypeAPI, ErrorTypeBlocked:
					return nil, err
				}
			}
			// Parse errors - retry with feedback
			prompt = fmt.Sprintf("%s\n\nPREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", originalPrompt, err)
			continue
		}

		// Validate if validation function provided
		if validate != nil {
			if err := validate(result); err != nil {
				lastErr = NewValidationError(err.Error(), err)
				slog.Warn("LLM output validation failed",
					"attempt", attempt,
					"error", err.Error(),
				)
				// Feed validation error back to LLM
				prompt = fmt.Sprintf("%s\n\nPREVIOUS VALIDATION ERROR:\n%v\n\nPlease fix the output to pass validation.", originalPrompt, err)
				continue
			}
		}

		slog.Info("LLM generation succeeded",
			"attempt", attempt,
			"model", model,
		)
		return result, nil
	}

	return nil, fmt.Errorf("validation failed after %d attempts: %w", client.config.MaxRetries, lastErr)
}

// callOpenRouter makes a single HTTP call to OpenRouter API and decodes the text reply as JSON.
func callOpenRouter[T any](client *Client, ctx context.Context, model, prompt string, images []schema.ImageRef) (*T, error) {
	resp, err := client.post(ctx, OpenRouterRequest{
		Model:    model,
		Messages: []OpenRouterMsg{buildUserMessage(prompt, images)},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, NewAPIError(0, "no choices in response")
	}

	content := resp.Choices[0].Message.Content

	// Clean markdown code blocks (some models wrap JSON in ```json...```)
	content = cleanMarkdownCodeBlocks(content)

	// Parse JSON content into struct
	var result T
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, NewParseError(content, err)
	}

	return &result, nil
}

// post executes a chat completion request and returns the decoded response.
func (c *Client) post(ctx context.Context, reqBody OpenRouterRequest) (*OpenRouterResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Create HTTP request
	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	// Execute request
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("OpenRouter HTTP request failed",
			"error", err.Error(),
			"duration", duration,
		)
		var timeoutErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeoutErr) && timeoutErr.Timeout()) {
			return nil, NewTimeoutError()
		}
		return nil, NewNetworkError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	slog.Info("OpenRouter HTTP request completed",
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	// Handle non-200 status codes
	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			slog.Warn("Failed to read error response body", "error", err)
			return nil, NewAPIError(resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		var wrapped struct {
			Error *OpenRouterError `json:"error"`
		}
		if json.Unmarshal(errBody.Bytes(), &wrapped) == nil && wrapped.Error != nil {
			if blocked := blockedError(resp.StatusCode, wrapped.Error); blocked != nil {
				return nil, blocked
			}
		}
		return nil, NewAPIError(resp.StatusCode, errBody.String())
	}

	// Parse response
	var openrouterResp OpenRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Check for API error in response
	if openrouterResp.Error != nil {
		if blocked := blockedError(0, openrouterResp.Error); blocked != nil {
			return nil, blocked
		}
		return nil, NewAPIError(0, openrouterResp.Error.Message)
	}

	return &openrouterResp, nil
}

// blockedError returns a blocked error for moderation refusals, nil otherwise.
// OpenRouter reports moderation as 403 with the flagged reasons in metadata.
func blockedError(status int, apiErr *OpenRouterError) *LLMError {
	if len(apiErr.Metadata.Reasons) == 0 && status != http.StatusForbidden {
		return nil
	}
	reason := "MODERATION"
	if len(apiErr.Metadata.Reasons) > 0 {
		reason = strings.Join(apiErr.Metadata.Reasons, ", ")
	}
	blocked := NewBlockedError(reason, apiErr.Message)
	blocked.Code = status
	return blocked
}

// buildUserMessage attaches images as image_url parts after the text prompt.
func buildUserMessage(prompt string, images []schema.ImageRef) OpenRouterMsg {
	if len(images) == 0 {
		return OpenRouterMsg{Role: "user", Content: prompt}
	}

	parts := make([]ContentPart, 0, len(images)+1)
	parts = append(parts, ContentPart{Type: "text", Text: prompt})
	for _, img := range images {
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: string(img)}})
	}
	return OpenRouterMsg{Role: "user", Content: parts}
}

// cleanMarkdownCodeBlocks removes markdown code block wrappers from JSON
// Some models (especially Gemini) wrap JSON in ```json...```.
func cleanMarkdownCodeBlocks(content string) string {
	content = strings.TrimSpace(content)

	// Remove ```json prefix
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Remove ``` suffix
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	return content
}
