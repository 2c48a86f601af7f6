package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// LocalBackend talks to an Ollama-compatible local runtime. It never makes an
// outbound internet call: every request goes to baseURL, which defaults to
// http://localhost:11434. Per §4.1 the timeout is generous (120s) to
// accommodate large local models.
type LocalBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
	reachable  bool
}

// NewLocalBackend probes the runtime's /api/tags endpoint once at
// construction to decide Available().
func NewLocalBackend(baseURL, model string) *LocalBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	b := &LocalBackend{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	b.Reprobe()
	return b
}

// Reprobe re-checks reachability; exposed so callers can retry after the
// local runtime comes up.
func (b *LocalBackend) Reprobe() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		b.reachable = false
		return
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.reachable = false
		return
	}
	defer resp.Body.Close()
	b.reachable = resp.StatusCode == http.StatusOK
}

func (b *LocalBackend) Available() bool {
	return b.reachable
}

func (b *LocalBackend) Status() Status {
	return Status{Provider: "ollama", Model: b.model, Kind: KindLocal, Privacy: PrivacyFull}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  *ollamaChatOptions  `json:"options,omitempty"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

func (b *LocalBackend) Generate(ctx context.Context, prompt string, msgs []Message, temperature float64, maxTokens int) (string, bool) {
	chatMsgs := make([]ollamaChatMessage, 0, len(msgs)+1)
	for _, m := range msgs {
		chatMsgs = append(chatMsgs, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	chatMsgs = append(chatMsgs, ollamaChatMessage{Role: "user", Content: prompt})

	reqBody := ollamaChatRequest{
		Model:    b.model,
		Messages: chatMsgs,
		Stream:   false,
		Options:  &ollamaChatOptions{Temperature: temperature, NumPredict: maxTokens},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if parsed.Message.Content == "" {
		return "", false
	}
	return parsed.Message.Content, true
}
