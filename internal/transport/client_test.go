// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/provider"
)

// =============================================================================
// END-TO-END
// =============================================================================

// TestChat_OllamaEndToEnd sends "hi" to a local Ollama stand-in.
func TestChat_OllamaEndToEnd(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /api/chat", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Write([]byte(`{"message":{"content":"hello"}}`))
	}))
	defer server.Close()

	reply, err := NewClient().Chat(context.Background(), Request{
		Provider: provider.Ollama,
		Model:    "llama3",
		Messages: []model.Message{model.NewUserMessage("hi")},
		Config:   provider.Config{OllamaURL: server.URL + "/"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if reply.Role != model.RoleAssistant || reply.Content != "hello" {
		t.Errorf("Chat() = %+v, want assistant/hello", reply)
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
	if gotBody["model"] != "llama3" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none for ollama", gotAuth)
	}
}

func TestChat_Headers(t *testing.T) {
	tests := []struct {
		provider provider.Provider
		header   string
		want     string
		reply    string
	}{
		{provider.Groq, "Authorization", "Bearer gsk", `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`},
		{provider.OpenAI, "Authorization", "Bearer sk", `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`},
		{provider.Together, "Authorization", "Bearer tg", `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`},
		{provider.Anthropic, "x-api-key", "ant", `{"content":[{"type":"text","text":"ok"}]}`},
	}

	creds := provider.Credentials{
		provider.Groq:      "gsk",
		provider.OpenAI:    "sk",
		provider.Together:  "tg",
		provider.Anthropic: "ant",
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get(tt.header); got != tt.want {
					t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
				w.Write([]byte(tt.reply))
			}))
			defer server.Close()

			c := NewClient().WithEndpoint(tt.provider, server.URL)
			reply, err := c.Chat(context.Background(), Request{
				Provider:    tt.provider,
				Model:       "m",
				Messages:    []model.Message{model.NewUserMessage("hi")},
				Credentials: creds,
			})
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if reply.Content != "ok" {
				t.Errorf("Chat() content = %q, want ok", reply.Content)
			}
		})
	}
}

// =============================================================================
// ERROR HANDLING
// =============================================================================

func TestChat_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"string error", 400, `{"error":"bad model"}`, "bad model"},
		{"structured error", 401, `{"error":{"message":"invalid key"}}`, "invalid key"},
		{"no body", 502, ``, "API error: 502"},
		{"html body", 503, `<html>down</html>`, "API error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient().WithEndpoint(provider.Groq, server.URL).Chat(context.Background(), Request{
				Provider: provider.Groq,
				Model:    "m",
			})

			var apiErr *provider.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Chat() error = %v, want *provider.APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v, want status %d message %q", apiErr, tt.status, tt.wantMsg)
			}
			if !errors.Is(err, provider.ErrAPI) {
				t.Error("error does not match provider.ErrAPI")
			}
		})
	}
}

func TestChat_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient().WithEndpoint(provider.OpenAI, server.URL).Chat(context.Background(), Request{Provider: provider.OpenAI})
	if err == nil {
		t.Fatal("Chat() error = nil, want rate limit error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want exactly 1", n)
	}
}

func TestChat_MalformedSuccessDegrades(t *testing.T) {
	for _, body := range []string{`{}`, `{"choices":[]}`, `not json`, ``} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		reply, err := NewClient().WithEndpoint(provider.Groq, server.URL).Chat(context.Background(), Request{Provider: provider.Groq})
		server.Close()

		if err != nil {
			t.Errorf("Chat(%q) error = %v, want nil", body, err)
		}
		if reply.Role != model.RoleAssistant || reply.Content != "" {
			t.Errorf("Chat(%q) = %+v, want empty assistant message", body, reply)
		}
	}
}

func TestChat_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient().WithEndpoint(provider.Groq, url).Chat(context.Background(), Request{Provider: provider.Groq})
	if err == nil || !strings.HasPrefix(err.Error(), "request failed:") {
		t.Errorf("Chat() error = %v, want request failed", err)
	}
}

func TestChat_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient().WithEndpoint(provider.Groq, server.URL).Chat(ctx, Request{Provider: provider.Groq})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Chat() error = %v, want deadline exceeded", err)
	}
}

func TestChat_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("a", 1024*1024)
		for i := 0; i < 11; i++ {
			w.Write([]byte(chunk))
		}
	}))
	defer server.Close()

	_, err := NewClient().WithEndpoint(provider.Groq, server.URL).Chat(context.Background(), Request{Provider: provider.Groq})
	if err == nil || !strings.Contains(err.Error(), "maximum size") {
		t.Errorf("Chat() error = %v, want size limit error", err)
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestClient_WithTimeout(t *testing.T) {
	c := NewClient()
	if c.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", c.Timeout(), DefaultTimeout)
	}
	c.WithTimeout(5 * time.Second)
	if c.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v", c.Timeout())
	}
	c.WithTimeout(0)
	if c.Timeout() != 5*time.Second {
		t.Errorf("WithTimeout(0) changed timeout to %v", c.Timeout())
	}
}

func TestClient_RateLimitPaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"x"}}`))
	}))
	defer server.Close()

	// 1 request per minute: the first call passes, the second must wait
	// longer than the context allows.
	c := NewClient().WithRateLimit(1)
	req := Request{Provider: provider.Ollama, Config: provider.Config{OllamaURL: server.URL}}

	if _, err := c.Chat(context.Background(), req); err != nil {
		t.Fatalf("first Chat() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := c.Chat(ctx, req); err == nil {
		t.Error("second Chat() error = nil, want pacing to block")
	}

	c.WithRateLimit(0)
	if _, err := c.Chat(context.Background(), req); err != nil {
		t.Errorf("Chat() after disabling pacing error = %v", err)
	}
}
