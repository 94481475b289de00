package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/schema"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
)

const (
	// RoleReview routes image classification requests.
	RoleReview = "review"
	// RoleSpeech routes text-to-speech requests.
	RoleSpeech = "speech"

	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// ErrMissingCredential is returned before any network call when the resolved
// provider has no API key.
var ErrMissingCredential = errors.New("api credential not configured")

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers *Registry
	Prompts   prompt.Registry
}

// ClassifyRequest is one image plus the prompt used to judge it.
type ClassifyRequest struct {
	Role       string
	PromptSlug string
	Model      string
	FileName   string
	Image      content.ContentBlock
	TimeoutSec int
}

// ClassifyResponse carries the schema-validated JSON payload from the model.
type ClassifyResponse struct {
	Payload       json.RawMessage
	ProviderID    string
	Model         string
	PromptSlug    string
	PromptVersion string
	Usage         *driver.Usage
}

// SpeechRequest asks the speech-routed provider to voice Text.
type SpeechRequest struct {
	Role       string
	Model      string
	Voice      string
	Text       string
	TimeoutSec int
}

// Classify sends one multimodal request and validates the reply against the
// prompt's response schema. No retry is attempted.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("ailink provider registry not configured")
	}
	if s.Prompts == nil {
		return nil, errors.New("ailink prompt registry not configured")
	}
	if len(req.Image.Data) == 0 {
		return nil, errors.New("image is required")
	}

	slug := strings.TrimSpace(req.PromptSlug)
	if slug == "" {
		slug = prompt.DefaultSlug
	}
	promptDef, err := s.Prompts.Get(slug)
	if err != nil {
		return nil, err
	}
	mimeType := string(req.Image.Type)
	if !promptDef.AcceptsImageType(mimeType) {
		return nil, fmt.Errorf("prompt %s does not accept %s images", slug, mimeType)
	}

	systemPrompt, userPrompt, err := promptDef.Render(map[string]string{
		"mime_type": mimeType,
		"file_name": req.FileName,
	})
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = RoleReview
	}
	resolved, err := s.Providers.Resolve(role, promptDef, req.Model)
	if err != nil {
		return nil, err
	}
	if !resolved.HasCredential() {
		return nil, ErrMissingCredential
	}

	userBlocks := []content.ContentBlock{req.Image}
	if strings.TrimSpace(userPrompt) != "" {
		userBlocks = append(userBlocks, content.ContentBlock{Type: content.ContentTypeText, Text: userPrompt})
	}
	driverReq := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			{Role: "system", Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: systemPrompt}}},
			{Role: "user", Content: userBlocks},
		},
		ResponseFormat: responseFormatForProvider(resolved, promptDef),
		Temperature:    temperatureHint(promptDef),
		PromptSlug:     promptDef.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.TimeoutSec))
	defer cancel()

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		return nil, err
	}

	raw := extractContent(resp)
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty response content")
	}
	if !json.Valid([]byte(raw)) {
		return nil, &RawResponseError{Err: errors.New("response is not valid JSON"), Raw: captureRaw(s.Providers.cfg, raw)}
	}
	if err := validateResponse(promptDef, []byte(raw)); err != nil {
		return nil, &RawResponseError{Err: err, Raw: captureRaw(s.Providers.cfg, raw)}
	}

	return &ClassifyResponse{
		Payload:       json.RawMessage(raw),
		ProviderID:    resolved.ProviderID,
		Model:         resolved.Model,
		PromptSlug:    promptDef.Config.Slug,
		PromptVersion: promptDef.Config.Version,
		Usage:         resp.Usage,
	}, nil
}

// Synthesize voices req.Text with the speech-routed provider.
func (s *Service) Synthesize(ctx context.Context, req SpeechRequest) (*driver.SpeechResponse, error) {
	if s == nil || s.Providers == nil {
		return nil, errors.New("ailink provider registry not configured")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("speech text is required")
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = RoleSpeech
	}
	resolved, err := s.Providers.ResolveSpeech(role, req.Model)
	if err != nil {
		return nil, err
	}
	if !resolved.HasCredential() {
		return nil, ErrMissingCredential
	}
	synth, ok := resolved.Driver.(driver.Synthesizer)
	if !ok || !resolved.Driver.Capabilities().SupportsSpeech {
		return nil, fmt.Errorf("provider %q does not support speech", resolved.ProviderID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.TimeoutSec))
	defer cancel()

	return synth.Synthesize(ctx, &driver.SpeechRequest{
		Model: resolved.Model,
		Text:  req.Text,
		Voice: req.Voice,
	})
}

// CredentialConfigured reports whether the provider for role has an API key,
// without making any network call.
func (s *Service) CredentialConfigured(role string) bool {
	if s == nil || s.Providers == nil {
		return false
	}
	providerID, providerCfg, err := s.Providers.resolveProvider(role)
	if err != nil || providerID == "" {
		return false
	}
	cred, _, err := selectCredential(providerCfg, nil)
	return err == nil && strings.TrimSpace(cred.APIKey) != ""
}

func (s *Service) timeout(overrideSec int) time.Duration {
	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if overrideSec > 0 {
		duration = time.Duration(overrideSec) * time.Second
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

func extractContent(resp *driver.Response) string {
	if resp == nil || len(resp.Content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n")
}

func validateResponse(def *prompt.Prompt, payload []byte) error {
	if def == nil || len(def.Config.ResponseSchema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(def.Config.ResponseSchema)
	if err != nil {
		return fmt.Errorf("encode response schema: %w", err)
	}
	validator, err := schema.NewValidator(schemaBytes)
	if err != nil {
		return fmt.Errorf("compile response schema: %w", err)
	}
	diagnostics, err := validator.ValidateJSON(payload)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("response schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}
