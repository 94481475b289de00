package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/encode"
)

// Synthesize requests spoken audio for req.Text from a TTS model.
//
// Unlike Complete, the credential is passed as the "key" query parameter and the
// model is named both in the path and in the body.
func (c *Client) Synthesize(ctx context.Context, req *driver.SpeechRequest) (*driver.SpeechResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("speech text is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("speech model is required")
	}
	if strings.TrimSpace(req.Voice) == "" {
		return nil, fmt.Errorf("speech voice is required")
	}

	payload := &generateContentRequest{
		Model:    "models/" + strings.TrimPrefix(req.Model, "models/"),
		Contents: []contentEntry{{Role: "user", Parts: []part{{Text: req.Text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: req.Voice}},
			},
		},
	}

	endpoint := c.modelURL(req.Model) + "?key=" + url.QueryEscape(c.APIKey)
	respBody, err := c.post(ctx, "speech", req.Model, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode speech response: %w", err)
	}
	return toSpeechResponse(&parsed)
}

func toSpeechResponse(resp *generateContentResponse) (*driver.SpeechResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("speech response has no candidates")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil {
			continue
		}
		if strings.TrimSpace(p.InlineData.Data) == "" {
			return nil, fmt.Errorf("speech response audio part is empty")
		}
		data, err := encode.DecodeBase64String(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode speech audio base64: %w", err)
		}
		return &driver.SpeechResponse{
			Audio: content.ContentBlock{Type: content.ContentType(p.InlineData.MimeType), Data: data},
		}, nil
	}
	return nil, fmt.Errorf("speech response has no inline audio part")
}
