package ailink

import (
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
)

// responseFormatForProvider asks for schema-constrained JSON when the prompt
// declares a response schema and the driver supports it; plain JSON otherwise.
func responseFormatForProvider(resolved *ResolvedProvider, def *prompt.Prompt) *driver.ResponseFormat {
	if def == nil || resolved == nil || resolved.Driver == nil {
		return &driver.ResponseFormat{Type: "json_object"}
	}

	if !resolved.Driver.Capabilities().SupportsJSONSchema {
		return &driver.ResponseFormat{Type: "json_object"}
	}

	schema := def.Config.ResponseSchema
	if len(schema) == 0 {
		return &driver.ResponseFormat{Type: "json_object"}
	}

	name := strings.TrimSpace(def.Config.Slug)
	if name == "" {
		name = "stocklens_schema"
	}
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	return &driver.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &driver.JSONSchema{
			Name:   name,
			Strict: true,
			Schema: schema,
		},
	}
}

// temperatureHint reads provider_hints.temperature from the prompt.
func temperatureHint(def *prompt.Prompt) *float64 {
	if def == nil {
		return nil
	}
	switch v := def.Config.ProviderHints["temperature"].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}
