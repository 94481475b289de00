package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
)

const passPayload = `{"status":"pass","explanation":"original","zedgeViolationStatus":"pass","zedgeViolationExplanation":"clean","womenPolicyStatus":"pass","womenPolicyExplanation":"none","kidsViolationStatus":"pass","kidsViolationExplanation":"none","title":"Misty pine forest","description":"Fog over pines.","tags":["forest","fog"]}`

func newTestService(t *testing.T, baseURL string, keys ...string) *Service {
	t.Helper()
	cfg := geminiConfig(keys...)
	p := cfg.Providers["gemini-main"]
	p.BaseURL = baseURL
	cfg.Providers["gemini-main"] = p

	prompts, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	return &Service{Providers: NewRegistry(cfg), Prompts: prompts}
}

func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
			"finishReason": "STOP",
		}},
	})
	return string(body)
}

func pngImage() content.ContentBlock {
	return content.ContentBlock{Type: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
}

func TestClassifyReturnsValidatedPayload(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"inlineData"`)
		require.Contains(t, string(body), `"responseSchema"`)
		_, _ = w.Write([]byte(geminiReply(passPayload)))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, "k1")
	resp, err := svc.Classify(context.Background(), ClassifyRequest{Image: pngImage(), FileName: "forest.png"})
	require.NoError(t, err)
	require.JSONEq(t, passPayload, string(resp.Payload))
	require.Equal(t, prompt.DefaultSlug, resp.PromptSlug)
	require.Equal(t, "gemini-2.5-flash", resp.Model)
	require.EqualValues(t, 1, calls.Load())
}

func TestClassifyRejectsSchemaViolations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiReply(`{"status":"maybe"}`)))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, "k1")
	_, err := svc.Classify(context.Background(), ClassifyRequest{Image: pngImage()})
	require.Error(t, err)
	var rerr *RawResponseError
	require.True(t, errors.As(err, &rerr))
}

func TestClassifyRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiReply("Sure! Here is the answer")))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, "k1")
	_, err := svc.Classify(context.Background(), ClassifyRequest{Image: pngImage()})
	require.ErrorContains(t, err, "not valid JSON")
}

func TestClassifyWithoutCredentialMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	_, err := svc.Classify(context.Background(), ClassifyRequest{Image: pngImage()})
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Zero(t, calls.Load())
	require.False(t, svc.CredentialConfigured(RoleReview))
}

func TestClassifyRejectsUnsupportedImageType(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", "k1")
	_, err := svc.Classify(context.Background(), ClassifyRequest{Image: content.ContentBlock{Type: "image/tiff", Data: []byte{1}}})
	require.ErrorContains(t, err, "does not accept")

	_, err = svc.Classify(context.Background(), ClassifyRequest{})
	require.ErrorContains(t, err, "image is required")
}

func TestSynthesizeRoutesToSpeechModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/m-tts:generateContent", r.URL.Path)
		require.Equal(t, "k1", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"AAA="}}]}}]}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, "k1")
	require.True(t, svc.CredentialConfigured(RoleSpeech))
	resp, err := svc.Synthesize(context.Background(), SpeechRequest{Text: "say cheerfully: hi", Voice: "Kore"})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, resp.Audio.Data)
}

func TestSynthesizeWithoutCredential(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	_, err := svc.Synthesize(context.Background(), SpeechRequest{Text: "hi", Voice: "Kore"})
	require.ErrorIs(t, err, ErrMissingCredential)
}
