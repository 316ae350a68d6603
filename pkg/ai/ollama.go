package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const ollamaDefaultBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator calls a local Ollama daemon over its /api/chat endpoint.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaGenerator builds a generator against baseURL, defaulting to the
// standard local daemon address.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   strings.TrimSpace(model),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

// Generate implements TextGenerator.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == "" {
		return "", errors.New("ollama: model required")
	}
	payload := ollamaRequest{
		Model:    g.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	body, status, err := postJSON(ctx, g.client, g.baseURL+"/api/chat", nil, payload)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	var resp ollamaResponse
	if uerr := json.Unmarshal(body, &resp); uerr != nil && status < 400 {
		return "", fmt.Errorf("ollama: decode response: %w", uerr)
	}
	if status >= 400 {
		if resp.Error != "" {
			return "", fmt.Errorf("ollama: %s", resp.Error)
		}
		return "", fmt.Errorf("ollama: http %d", status)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", errors.New("ollama: empty response")
	}
	return resp.Message.Content, nil
}
