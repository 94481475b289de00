package ailink

import (
	"encoding/json"
	"strings"
)

func truncateJSONRaw(input json.RawMessage, max int) json.RawMessage {
	if max <= 0 {
		return nil
	}
	if len(input) <= max {
		return input
	}
	out := make(json.RawMessage, 0, max)
	out = append(out, input[:max]...)
	return out
}

// captureRaw returns the payload to attach to an error or response, honouring
// the debug capture settings.
func captureRaw(cfg Config, raw string) json.RawMessage {
	if !cfg.Debug.CaptureRawEnabled {
		return nil
	}
	return truncateJSONRaw(json.RawMessage(raw), rawLimit(cfg))
}

func rawLimit(cfg Config) int {
	if cfg.Debug.CaptureRawMaxBytes <= 0 {
		return 0
	}
	return cfg.Debug.CaptureRawMaxBytes
}

func safeOneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
