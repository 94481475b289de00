package gemini

import (
	"fmt"
	"slices"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/encode"
)

type generateContentRequest struct {
	Model             string            `json:"model,omitempty"`
	SystemInstruction *contentEntry     `json:"systemInstruction,omitempty"`
	Contents          []contentEntry    `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type contentEntry struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig  `json:"speechConfig,omitempty"`
	Temperature        *float64       `json:"temperature,omitempty"`
	MaxOutputTokens    *int           `json:"maxOutputTokens,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

func buildGenerateRequest(req *driver.Request) (*generateContentRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateContentRequest{}
	for _, msg := range req.Messages {
		parts, err := convertParts(msg.Content)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		switch msg.Role {
		case "system":
			if payload.SystemInstruction == nil {
				payload.SystemInstruction = &contentEntry{}
			}
			payload.SystemInstruction.Parts = append(payload.SystemInstruction.Parts, parts...)
		case "assistant", "model":
			payload.Contents = append(payload.Contents, contentEntry{Role: "model", Parts: parts})
		default:
			payload.Contents = append(payload.Contents, contentEntry{Role: "user", Parts: parts})
		}
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}

	cfg := &generationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if rf := req.ResponseFormat; rf != nil {
		switch rf.Type {
		case "json_object":
			cfg.ResponseMimeType = "application/json"
		case "json_schema":
			cfg.ResponseMimeType = "application/json"
			if rf.JSONSchema != nil && len(rf.JSONSchema.Schema) > 0 {
				cfg.ResponseSchema = toGeminiSchema(rf.JSONSchema.Schema)
			}
		}
	}
	if cfg.ResponseMimeType != "" || cfg.Temperature != nil || cfg.MaxOutputTokens != nil {
		payload.GenerationConfig = cfg
	}

	return payload, nil
}

func convertParts(blocks []content.ContentBlock) ([]part, error) {
	parts := make([]part, 0, len(blocks))
	for _, block := range blocks {
		switch {
		case block.Type == content.ContentTypeText || block.Type == content.ContentTypeJSON || block.Type == "":
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			parts = append(parts, part{Text: block.Text})
		case block.Type.IsImage():
			if len(block.Data) == 0 {
				return nil, fmt.Errorf("image block %s has no data", block.Type)
			}
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: string(block.Type),
				Data:     encode.EncodeBase64String(block.Data),
			}})
		default:
			return nil, fmt.Errorf("unsupported content type: %s", block.Type)
		}
	}
	return parts, nil
}

// droppedSchemaKeys are JSON Schema keywords the Gemini schema subset rejects.
var droppedSchemaKeys = map[string]bool{
	"$schema":              true,
	"$id":                  true,
	"additionalProperties": true,
	"maxLength":            true,
	"minLength":            true,
	"pattern":              true,
}

// toGeminiSchema converts a JSON Schema document into the OpenAPI-style
// subset accepted by responseSchema (upper-case type names, no $-keywords).
// Objects get a propertyOrdering: required names in listed order, then the
// remaining properties alphabetically.
func toGeminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for key, value := range schema {
		if droppedSchemaKeys[key] {
			continue
		}
		switch key {
		case "type":
			if s, ok := value.(string); ok {
				out[key] = strings.ToUpper(s)
				continue
			}
			out[key] = value
		case "properties":
			props, ok := value.(map[string]any)
			if !ok {
				continue
			}
			converted := make(map[string]any, len(props))
			for name, prop := range props {
				if m, ok := prop.(map[string]any); ok {
					converted[name] = toGeminiSchema(m)
				}
			}
			out[key] = converted
		case "items":
			if m, ok := value.(map[string]any); ok {
				out[key] = toGeminiSchema(m)
			}
		default:
			out[key] = value
		}
	}
	if props, ok := out["properties"].(map[string]any); ok && len(props) > 0 {
		if _, set := out["propertyOrdering"]; !set {
			out["propertyOrdering"] = propertyOrdering(props, schema["required"])
		}
	}
	return out
}

func propertyOrdering(props map[string]any, required any) []string {
	var listed []string
	switch r := required.(type) {
	case []string:
		listed = r
	case []any:
		for _, v := range r {
			if s, ok := v.(string); ok {
				listed = append(listed, s)
			}
		}
	}

	order := make([]string, 0, len(props))
	seen := make(map[string]bool, len(props))
	for _, name := range listed {
		if _, ok := props[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(props)-len(order))
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}
