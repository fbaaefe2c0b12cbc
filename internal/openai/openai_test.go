package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ctxpkg "github.com/stupiduntilnot/studbot/internal/context"
	modelpkg "github.com/stupiduntilnot/studbot/internal/model"
)

func userRequest(text string) modelpkg.Request {
	return modelpkg.Request{Messages: []ctxpkg.Message{{Role: "user", Content: text}}}
}

func TestChatCompletion_WithUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello!"}},
			},
			"usage": map[string]any{
				"prompt_tokens":     42,
				"completion_tokens": 7,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", 5*time.Second)
	result, err := client.ChatCompletion(context.Background(), userRequest("hi"))
	if err != nil {
		t.Fatal(err)
	}

	if result.Content != "Hello!" {
		t.Errorf("expected content 'Hello!', got %q", result.Content)
	}
	if result.InputTokens != 42 {
		t.Errorf("expected 42 input tokens, got %d", result.InputTokens)
	}
	if result.OutputTokens != 7 {
		t.Errorf("expected 7 output tokens, got %d", result.OutputTokens)
	}
}

func TestChatCompletion_JSONHint(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header for empty key")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": `{"tool":"quiz"}`}}},
		})
	}))
	defer server.Close()

	client := NewClient("", server.URL, "gemma3:1b", 5*time.Second)
	req := userRequest("quiz me")
	req.JSON = true
	if _, err := client.ChatCompletion(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", got.ResponseFormat)
	}
	if got.Model != "gemma3:1b" || len(got.Messages) != 1 || got.Messages[0].Content != "quiz me" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 0},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", 5*time.Second)
	_, err := client.ChatCompletion(context.Background(), userRequest("hi"))
	var ce *modelpkg.CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompletionError for empty choices, got %v", err)
	}
}

func TestChatCompletion_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", 5*time.Second)
	_, err := client.ChatCompletion(context.Background(), userRequest("hi"))
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	var ce *modelpkg.CompletionError
	if !errors.As(err, &ce) || ce.Timeout {
		t.Fatalf("expected non-timeout CompletionError, got %v", err)
	}
}

func TestChatCompletion_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("test-key", server.URL, "test-model", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.ChatCompletion(ctx, userRequest("hi"))
	var ce *modelpkg.CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if !ce.Timeout {
		t.Fatalf("expected timeout classification, got %+v", ce)
	}
}
