package driver

import (
	"context"

	"github.com/stocklens/stocklens/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Synthesizer is implemented by drivers that can turn text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResponse, error)
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsImages     bool
	SupportsSpeech     bool
	SupportsJSONSchema bool
	SupportedModels    []string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type       string      `json:"type"` // "text", "json_object", "json_schema"
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is a named response schema for structured output.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
	Metadata       map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// SpeechRequest asks a provider to read text aloud with a preset voice.
type SpeechRequest struct {
	Model string
	Text  string
	Voice string
}

// SpeechResponse carries the inline audio returned by a provider.
// Audio.Type holds the declared media type (including parameters such as rate).
type SpeechResponse struct {
	Audio content.ContentBlock
}
