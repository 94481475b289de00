package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/driver"
)

func TestSynthesizeUsesQueryKeyAndVoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.5-flash-preview-tts:generateContent", r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		require.Empty(t, r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload generateContentRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "models/gemini-2.5-flash-preview-tts", payload.Model)
		require.Equal(t, "say cheerfully: hello", payload.Contents[0].Parts[0].Text)
		require.Equal(t, []string{"AUDIO"}, payload.GenerationConfig.ResponseModalities)
		require.Equal(t, "Kore", payload.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"AADoAxj8"}}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	client.HTTPClient = server.Client()

	resp, err := client.Synthesize(context.Background(), &driver.SpeechRequest{
		Model: "gemini-2.5-flash-preview-tts",
		Text:  "say cheerfully: hello",
		Voice: "Kore",
	})
	require.NoError(t, err)
	require.Equal(t, "audio/L16;codec=pcm;rate=24000", string(resp.Audio.Type))
	require.Equal(t, []byte{0x00, 0x00, 0xE8, 0x03, 0x18, 0xFC}, resp.Audio.Data)
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := NewClient("", "secret")
	_, err := client.Synthesize(context.Background(), &driver.SpeechRequest{Model: "m", Voice: "Kore"})
	require.ErrorContains(t, err, "text")

	_, err = client.Synthesize(context.Background(), &driver.SpeechRequest{Text: "x", Voice: "Kore"})
	require.ErrorContains(t, err, "model")

	_, err = NewClient("", "").Synthesize(context.Background(), &driver.SpeechRequest{Model: "m", Text: "x", Voice: "Kore"})
	require.ErrorContains(t, err, "api key")
}

func TestSynthesizeRejectsResponsesWithoutAudio(t *testing.T) {
	cases := map[string]string{
		"no candidates": `{"candidates":[]}`,
		"text only":     `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`,
		"empty data":    `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":""}}]}}]}`,
		"bad base64":    `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"!!"}}]}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "secret")
			client.HTTPClient = server.Client()
			_, err := client.Synthesize(context.Background(), &driver.SpeechRequest{Model: "m", Text: "x", Voice: "Kore"})
			require.Error(t, err)
		})
	}
}

func TestSynthesizeErrorRedactsKey(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "very-secret")
	_, err := client.Synthesize(context.Background(), &driver.SpeechRequest{Model: "m", Text: "x", Voice: "Kore"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "very-secret")
}
