package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]string{{"text": "oi"}}}},
			},
		})
	}))
	defer ts.Close()

	g, err := NewGeminiGenerator("test-key", "models/gemini-1.5-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	g.baseURL = ts.URL
	text, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "oi" {
		t.Fatalf("text = %q", text)
	}
}

func TestGeminiGenerateAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "key expired"}})
	}))
	defer ts.Close()

	g, err := NewGeminiGenerator("bad-key", "gemini-1.5-flash")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	g.baseURL = ts.URL
	if _, err := g.Generate(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error from 403 response")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "{\"ok\": true}"}},
			},
		})
	}))
	defer ts.Close()

	g := NewOpenAIGenerator(ts.URL+"/v1", "test-key", "test-model")
	text, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"ok": true}` {
		t.Fatalf("text = %q", text)
	}
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "rate limited"}})
	}))
	defer ts.Close()

	g := NewOpenAIGenerator(ts.URL, "", "test-model")
	if _, err := g.Generate(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error from 429 response")
	}
}

func TestOllamaGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Errorf("stream must be disabled")
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Message: ollamaMessage{Role: "assistant", Content: "resposta"},
		})
	}))
	defer ts.Close()

	g := NewOllamaGenerator(ts.URL, "llama3")
	text, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "resposta" {
		t.Fatalf("text = %q", text)
	}
}

func TestOllamaGenerateEmptyReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{})
	}))
	defer ts.Close()

	g := NewOllamaGenerator(ts.URL, "llama3")
	if _, err := g.Generate(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for empty reply")
	}
}
