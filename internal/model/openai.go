package model

import (
	"context"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend is a cloud backend for GPT models, and is also reused by
// NewGroqBackend since Groq exposes an OpenAI-compatible chat completions
// endpoint.
type OpenAIBackend struct {
	client      oai.Client
	providerTag string
	model       string
	hasAPIKey   bool
}

// NewOpenAIBackend constructs a GPT backend.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAIBackend{
		client:      oai.NewClient(opts...),
		providerTag: "openai",
		model:       model,
		hasAPIKey:   apiKey != "",
	}
}

// NewGroqBackend points the same OpenAI-compatible client at Groq's REST
// endpoint. Groq has no SDK of its own; its chat completions API is a
// drop-in match for OpenAI's.
func NewGroqBackend(apiKey, model string) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithBaseURL("https://api.groq.com/openai/v1"),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAIBackend{
		client:      oai.NewClient(opts...),
		providerTag: "groq",
		model:       model,
		hasAPIKey:   apiKey != "",
	}
}

func (b *OpenAIBackend) Available() bool {
	return b.hasAPIKey
}

func (b *OpenAIBackend) Status() Status {
	return Status{Provider: b.providerTag, Model: b.model, Kind: KindCloud, Privacy: PrivacyRequiresApproval}
}

func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (string, bool) {
	if !b.hasAPIKey {
		return "", false
	}

	params := oai.ChatCompletionNewParams{
		Model: b.model,
	}
	for _, m := range msgs {
		params.Messages = append(params.Messages, toOpenAIMessage(m))
	}
	params.Messages = append(params.Messages, oai.UserMessage(prompt))

	if temperature > 0 {
		params.Temperature = oai.Float(temperature)
	}
	if maxTokens > 0 {
		params.MaxTokens = oai.Int(int64(maxTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil || resp == nil || len(resp.Choices) == 0 {
		return "", false
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", false
	}
	return text, true
}

func toOpenAIMessage(m Message) oai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "system":
		return oai.SystemMessage(m.Content)
	case "assistant":
		return oai.AssistantMessage(m.Content)
	default:
		return oai.UserMessage(m.Content)
	}
}
