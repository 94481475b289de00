package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
)

func imageRequest() *driver.Request {
	return &driver.Request{
		Model: "gemini-2.5-flash",
		Messages: []content.Message{
			{Role: "system", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: "sys"}}},
			{Role: "user", Content: []content.ContentBlock{
				{Type: "image/png", Data: []byte("png-bytes")},
				{Type: content.ContentTypeText, Text: "classify"},
			}},
		},
		ResponseFormat: &driver.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &driver.JSONSchema{
				Name: "review",
				Schema: map[string]any{
					"$schema":              "https://json-schema.org/draft/2020-12/schema",
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"status"},
					"properties": map[string]any{
						"status": map[string]any{"type": "string", "enum": []any{"pass", "found"}},
						"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), imageRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientDefaultsBaseURL(t *testing.T) {
	client := NewClient("  ", "k")
	require.Equal(t, defaultBaseURL, client.BaseURL)
	require.Equal(t, defaultBaseURL+"/models/gemini-2.5-flash:generateContent", client.modelURL("models/gemini-2.5-flash"))
}

func TestClientSendsImageAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload generateContentRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.NotNil(t, payload.SystemInstruction)
		require.Equal(t, "sys", payload.SystemInstruction.Parts[0].Text)
		require.Len(t, payload.Contents, 1)
		parts := payload.Contents[0].Parts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[0].InlineData)
		require.Equal(t, "image/png", parts[0].InlineData.MimeType)
		require.Equal(t, "cG5nLWJ5dGVz", parts[0].InlineData.Data)
		require.Equal(t, "classify", parts[1].Text)

		require.NotNil(t, payload.GenerationConfig)
		require.Equal(t, "application/json", payload.GenerationConfig.ResponseMimeType)
		require.Equal(t, "OBJECT", payload.GenerationConfig.ResponseSchema["type"])
		_, hasAdditional := payload.GenerationConfig.ResponseSchema["additionalProperties"]
		require.False(t, hasAdditional)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"status\":"},{"text":"\"pass\"}"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), imageRequest())
	require.NoError(t, err)
	require.Equal(t, "STOP", resp.FinishReason)
	require.Len(t, resp.Content, 1)
	require.Equal(t, `{"status":"pass"}`, resp.Content[0].Text)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), imageRequest())
	require.Error(t, err)
	require.Equal(t, http.StatusTooManyRequests, driver.StatusCode(err))

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "gemini", perr.Provider)
	require.Equal(t, "generate", perr.Operation)
}

func TestClientReportsBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), imageRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "SAFETY")
}

func TestBuildGenerateRequestRejectsUnsupportedBlocks(t *testing.T) {
	_, err := buildGenerateRequest(&driver.Request{
		Model:    "m",
		Messages: []content.Message{{Role: "user", Content: []content.ContentBlock{{Type: "video/mp4", Data: []byte{1}}}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported content type")

	_, err = buildGenerateRequest(&driver.Request{
		Model:    "m",
		Messages: []content.Message{{Role: "user", Content: []content.ContentBlock{{Type: "image/jpeg"}}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no data")
}

func TestToGeminiSchemaNested(t *testing.T) {
	out := toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "maxLength": 60},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "pattern": "^.+$"},
			},
		},
	})
	props := out["properties"].(map[string]any)
	title := props["title"].(map[string]any)
	require.Equal(t, "STRING", title["type"])
	_, hasMax := title["maxLength"]
	require.False(t, hasMax)
	items := props["tags"].(map[string]any)["items"].(map[string]any)
	require.Equal(t, "STRING", items["type"])
	_, hasPattern := items["pattern"]
	require.False(t, hasPattern)
	require.Equal(t, []string{"tags", "title"}, out["propertyOrdering"])
	_, itemsOrdered := items["propertyOrdering"]
	require.False(t, itemsOrdered)
}

func TestToGeminiSchemaPropertyOrdering(t *testing.T) {
	out := toGeminiSchema(map[string]any{
		"type":     "object",
		"required": []any{"status", "explanation", "missing"},
		"properties": map[string]any{
			"tags":        map[string]any{"type": "array"},
			"explanation": map[string]any{"type": "string"},
			"status":      map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
	})
	require.Equal(t, []string{"status", "explanation", "description", "tags"}, out["propertyOrdering"])
	require.Equal(t, []any{"status", "explanation", "missing"}, out["required"])

	kept := toGeminiSchema(map[string]any{
		"type":             "object",
		"properties":       map[string]any{"b": map[string]any{}, "a": map[string]any{}},
		"propertyOrdering": []any{"b", "a"},
	})
	require.Equal(t, []any{"b", "a"}, kept["propertyOrdering"])
}
