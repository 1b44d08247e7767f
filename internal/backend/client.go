// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/transport"
)

const (
	// DefaultBaseURL is where a development backend listens.
	DefaultBaseURL = "http://localhost:3001/api"

	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 120 * time.Second

	// AuthPollInterval is the default delay between auth status checks.
	AuthPollInterval = 2 * time.Second

	// AuthPollTimeout is the default limit on how long WaitForAuth polls.
	AuthPollTimeout = 2 * time.Minute

	maxResponseSize = 10 * 1024 * 1024
)

var (
	// ErrAuthTimeout is returned when sign-in did not complete in time.
	ErrAuthTimeout = errors.New("authentication timed out")

	// ErrNoAuthURL is returned when the backend did not provide a sign-in URL.
	ErrNoAuthURL = errors.New("backend returned no auth URL")
)

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CHAT
// =============================================================================

type chatRequest struct {
	Messages []model.Message   `json:"messages"`
	Provider provider.Provider `json:"provider"`
	Model    string            `json:"model"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// Chat asks the backend to run the conversation against p and model.
func (c *Client) Chat(ctx context.Context, messages []model.Message, p provider.Provider, modelID string) (string, error) {
	if messages == nil {
		messages = []model.Message{}
	}
	var resp chatResponse
	err := c.do(ctx, http.MethodPost, "/chat", chatRequest{Messages: messages, Provider: p, Model: modelID}, &resp, "Failed to send message")
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Relay runs req through the backend instead of calling the provider. The
// backend holds the credentials, so req.Credentials is ignored.
func (c *Client) Relay(ctx context.Context, req transport.Request) (model.Message, error) {
	content, err := c.Chat(ctx, req.Messages, req.Provider, req.Model)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewAssistantMessage(content), nil
}

// =============================================================================
// AUTH
// =============================================================================

// GoogleAuthURL returns the URL the user opens to sign in.
func (c *Client) GoogleAuthURL(ctx context.Context) (string, error) {
	var resp struct {
		AuthURL string `json:"authUrl"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/google", nil, &resp, "Failed to get auth URL"); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", ErrNoAuthURL
	}
	return resp.AuthURL, nil
}

// AuthStatus reports whether the backend has a signed-in user.
func (c *Client) AuthStatus(ctx context.Context) (bool, error) {
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/status", nil, &resp, "Failed to check auth status"); err != nil {
		return false, err
	}
	return resp.Authenticated, nil
}

// WaitForAuth checks AuthStatus every interval until it succeeds or limit has
// elapsed, then returns nil or ErrAuthTimeout. Failed checks are logged and
// polling continues. Zero values select AuthPollInterval and
// AuthPollTimeout. The limit also bounds a status check in flight.
func (c *Client) WaitForAuth(ctx context.Context, interval, limit time.Duration) error {
	if interval <= 0 {
		interval = AuthPollInterval
	}
	if limit <= 0 {
		limit = AuthPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return pollDone(ctx)
		case <-ticker.C:
			if pollCtx.Err() != nil {
				return pollDone(ctx)
			}
			ok, err := c.AuthStatus(pollCtx)
			if err != nil {
				log.Printf("Auth status check failed: %v", err)
				continue
			}
			if ok {
				return nil
			}
		}
	}
}

// pollDone reports why polling stopped: the caller's context, or the limit.
func pollDone(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrAuthTimeout
}

// =============================================================================
// MCP TOOLS
// =============================================================================

type executeRequest struct {
	ToolName   string          `json:"toolName"`
	Parameters json.RawMessage `json:"parameters"`
}

// ListTools returns the backend's tool list as sent.
func (c *Client) ListTools(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/mcp/tools", nil, &resp, "Failed to list MCP tools"); err != nil {
		return nil, err
	}
	return resp, nil
}

// ExecuteTool runs the named tool with params, a JSON value. Empty params
// are sent as {}.
func (c *Client) ExecuteTool(ctx context.Context, name string, params json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(params)) == 0 {
		params = json.RawMessage("{}")
	}
	if !json.Valid(params) {
		return nil, fmt.Errorf("tool parameters are not valid JSON")
	}
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/mcp/execute", executeRequest{ToolName: name, Parameters: params}, &resp, "Failed to execute MCP tool"); err != nil {
		return nil, err
	}
	return resp, nil
}

// =============================================================================
// HTTP
// =============================================================================

// do sends one request and decodes a 2xx JSON body into out. On other
// statuses the body's "error" string is the message, else fallback.
func (c *Client) do(ctx context.Context, method, path string, in, out any, fallback string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Printf("Backend Request: %s %s", method, path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("Backend Response: %s (%v)", resp.Status, time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(data, fallback)}
	}

	// A 2xx body that does not decode leaves out at its zero value.
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("Backend Response: undecodable body for %s: %v", path, err)
	}
	return nil
}

func errorMessage(body []byte, fallback string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}
