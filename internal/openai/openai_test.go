package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
)

func completionServer(t *testing.T, resp map[string]any, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChatCompletion_WithUsage(t *testing.T) {
	var req map[string]any
	server := completionServer(t, map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{
			{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "Hello!"}},
		},
		"usage": map[string]any{
			"prompt_tokens":     42,
			"completion_tokens": 7,
			"total_tokens":      49,
		},
	}, &req)

	client := NewClient("test-key", server.URL, "test-model", "be brief", 256, 5*time.Second)
	result, err := client.ChatCompletion(context.Background(), []ctxpkg.Message{
		{Role: "user", Content: "post"},
		{Role: "assistant", Content: "NNN"},
		{Role: "user", Content: "hi"},
	})
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

	msgs, _ := req["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected system + 3 messages, got %v", req["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("unexpected system message: %v", first)
	}
	second, _ := msgs[2].(map[string]any)
	if second["role"] != "assistant" {
		t.Errorf("expected assistant role preserved, got %v", second)
	}
	if req["model"] != "test-model" {
		t.Errorf("unexpected model: %v", req["model"])
	}
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	server := completionServer(t, map[string]any{
		"choices": []map[string]any{},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 0},
	}, nil)

	client := NewClient("test-key", server.URL, "test-model", "", 0, 5*time.Second)
	result, err := client.ChatCompletion(context.Background(), []ctxpkg.Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, modelpkg.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if result.InputTokens != 10 {
		t.Errorf("expected 10 input tokens, got %d", result.InputTokens)
	}
}

func TestChatCompletion_BlankContent(t *testing.T) {
	server := completionServer(t, map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": "   "}},
		},
	}, nil)

	client := NewClient("test-key", server.URL, "test-model", "", 0, 5*time.Second)
	_, err := client.ChatCompletion(context.Background(), []ctxpkg.Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, modelpkg.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestChatCompletion_KeepsSurroundingWhitespace(t *testing.T) {
	server := completionServer(t, map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": "  NNN\n"}},
		},
	}, nil)

	client := NewClient("test-key", server.URL, "test-model", "", 0, 5*time.Second)
	result, err := client.ChatCompletion(context.Background(), []ctxpkg.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if result.Content != "  NNN\n" {
		t.Fatalf("expected reply unchanged, got %q", result.Content)
	}
}

func TestChatCompletion_HTTPError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "", 0, 5*time.Second)
	_, err := client.ChatCompletion(context.Background(), []ctxpkg.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one request (no retries), got %d", calls.Load())
	}
}
