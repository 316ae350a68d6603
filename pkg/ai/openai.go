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

// OpenAIGenerator talks to any OpenAI-compatible /chat/completions endpoint:
// the hosted API, vLLM, LiteLLM, OpenRouter, and the like.
type OpenAIGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIGenerator builds a generator for an OpenAI-compatible endpoint.
// baseURL should include the /v1 prefix when the server expects one. An
// empty apiKey skips the Authorization header for unauthenticated local
// deployments.
func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == "" {
		return "", errors.New("openai: model required")
	}
	header := http.Header{}
	if g.apiKey != "" {
		header.Set("Authorization", "Bearer "+g.apiKey)
	}
	payload := openAIRequest{
		Model:    g.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}
	body, status, err := postJSON(ctx, g.client, g.baseURL+"/chat/completions", header, payload)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	var resp openAIResponse
	if uerr := json.Unmarshal(body, &resp); uerr != nil && status < 400 {
		return "", fmt.Errorf("openai: decode response: %w", uerr)
	}
	if status >= 400 {
		if resp.Error.Message != "" {
			return "", fmt.Errorf("openai: %s", resp.Error.Message)
		}
		return "", fmt.Errorf("openai: http %d", status)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty response")
	}
	return text, nil
}
