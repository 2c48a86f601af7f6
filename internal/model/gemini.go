package model

import (
	"context"

	"google.golang.org/genai"
)

// GeminiBackend is a cloud backend for Google's Gemini models.
type GeminiBackend struct {
	client    *genai.Client
	model     string
	hasAPIKey bool
}

// NewGeminiBackend constructs a Gemini backend. Client construction itself
// cannot fail without a live call, so a construction error degrades to an
// unavailable backend rather than a fatal error.
func NewGeminiBackend(ctx context.Context, apiKey, model string) *GeminiBackend {
	if apiKey == "" {
		return &GeminiBackend{model: model, hasAPIKey: false}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiBackend{model: model, hasAPIKey: false}
	}
	return &GeminiBackend{client: client, model: model, hasAPIKey: true}
}

func (b *GeminiBackend) Available() bool {
	return b.hasAPIKey && b.client != nil
}

func (b *GeminiBackend) Status() Status {
	return Status{Provider: "gemini", Model: b.model, Kind: KindCloud, Privacy: PrivacyRequiresApproval}
}

func (b *GeminiBackend) Generate(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (string, bool) {
	if !b.Available() {
		return "", false
	}

	var contents []*genai.Content
	var systemInstruction *genai.Content
	for _, m := range msgs {
		if m.Role == "system" {
			systemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if temperature > 0 {
		t := float32(temperature)
		cfg.Temperature = &t
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if systemInstruction != nil {
		cfg.SystemInstruction = systemInstruction
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, cfg)
	if err != nil || resp == nil {
		return "", false
	}

	text := resp.Text()
	if text == "" {
		return "", false
	}
	return text, true
}
