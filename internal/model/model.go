// Package model defines the uniform backend interface (§4.1 of the design:
// every local or cloud large-language-model backend — Ollama, Claude, GPT,
// Gemini, Groq — implements the same small surface so the orchestrator can
// treat them interchangeably.
package model

import "context"

// Kind distinguishes where a backend's inference actually runs.
type Kind string

const (
	KindLocal Kind = "local"
	KindCloud Kind = "cloud"
)

// Privacy describes whether a backend ever needs cloud approval.
type Privacy string

const (
	PrivacyFull             Privacy = "full"
	PrivacyRequiresApproval Privacy = "requires_approval"
)

// Message is one turn of the prompt context handed to a backend. Role is
// "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Status describes a backend for diagnostics and the brain-stats endpoint.
type Status struct {
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Kind     Kind    `json:"kind"`
	Privacy  Privacy `json:"privacy"`
}

// Client is the uniform contract every backend implements. Generate must
// never panic or propagate a transport/auth/provider error across the
// boundary: on failure it returns ok=false and the orchestrator counts that
// as a failed attempt for this backend.
type Client interface {
	Generate(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (text string, ok bool)

	// Available reports whether this backend passed its reachability /
	// credential probe. Local backends and cloud backends without
	// credentials both report false rather than erroring.
	Available() bool

	Status() Status
}

// StreamChunk is one piece of an in-progress streamed generation.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// StreamingClient is an optional extension for backends that can stream
// incremental text. Not used by the orchestrator itself (§4.10 only
// consumes Generate); exposed for the API surface's streaming endpoint.
type StreamingClient interface {
	Client
	GenerateStream(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (<-chan StreamChunk, error)
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition describes a callable tool in JSON-Schema-ish form.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCallingClient is an optional extension exposed at the API surface for
// external tool loops; the orchestrator itself never calls tools directly.
type ToolCallingClient interface {
	Client
	GenerateWithTools(ctx context.Context, prompt string, msgs []Message, tools []ToolDefinition) ([]ToolCall, string, bool)
}
