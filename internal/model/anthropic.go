package model

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend is a cloud backend for Claude models. It is only safe to
// call once the privacy controller has approved "claude" for the session
// (§4.2); the backend itself has no privacy awareness.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	hasAPIKey bool
}

// NewAnthropicBackend constructs a Claude backend. apiKey may be empty, in
// which case Available() reports false and every Generate call short-circuits.
func NewAnthropicBackend(apiKey, model string, maxTokens int) *AnthropicBackend {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicBackend{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		hasAPIKey: apiKey != "",
	}
}

func (b *AnthropicBackend) Available() bool {
	return b.hasAPIKey
}

func (b *AnthropicBackend) Status() Status {
	return Status{Provider: "claude", Model: b.model, Kind: KindCloud, Privacy: PrivacyRequiresApproval}
}

func (b *AnthropicBackend) Generate(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (string, bool) {
	if !b.hasAPIKey {
		return "", false
	}

	tokens := b.maxTokens
	if maxTokens > 0 {
		tokens = int64(maxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: tokens,
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	for _, m := range msgs {
		if m.Role == "system" {
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
			continue
		}
		params.Messages = append(params.Messages, toAnthropicMessage(m))
	}
	params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil || resp == nil {
		return "", false
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", false
	}
	return text, true
}

func toAnthropicMessage(m Message) anthropic.MessageParam {
	block := anthropic.NewTextBlock(m.Content)
	if m.Role == "assistant" {
		return anthropic.NewAssistantMessage(block)
	}
	return anthropic.NewUserMessage(block)
}
