// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/provider"
)

const (
	// DefaultTimeout is the default timeout for provider requests.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// sharedTransport pools connections across clients.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// Request is one chat completion call.
type Request struct {
	Provider    provider.Provider
	Model       string
	Messages    []model.Message
	Credentials provider.Credentials

	// Config carries user-set endpoints (the Ollama URL).
	Config provider.Config
}

// Client sends chat completions. It is safe for concurrent use once
// configured.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoints  map[provider.Provider]string
}

// NewClient creates a client with DefaultTimeout and no pacing.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		endpoints: make(map[provider.Provider]string),
	}
}

// WithTimeout sets the whole-request timeout. Zero or negative keeps the
// current value.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRateLimit paces calls to at most rpm per minute. 0 disables pacing.
func (c *Client) WithRateLimit(rpm int) *Client {
	if rpm <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithEndpoint sends requests for p to url instead of the adapter's
// endpoint. Used for proxies and tests.
func (c *Client) WithEndpoint(p provider.Provider, url string) *Client {
	c.endpoints[p] = url
	return c
}

// Timeout returns the configured request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

func (c *Client) endpoint(a provider.Adapter, req Request) string {
	if url, ok := c.endpoints[req.Provider]; ok {
		return url
	}
	return a.Endpoint(req.Config)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends the conversation to the provider and returns the assistant
// reply. Non-2xx responses return *provider.APIError. A 2xx body with an
// unexpected shape yields an empty assistant message, not an error.
func (c *Client) Chat(ctx context.Context, req Request) (model.Message, error) {
	a := provider.For(req.Provider)

	body, err := a.Encode(req.Model, req.Messages)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.Message{}, fmt.Errorf("request failed: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(a, req), bytes.NewReader(body))
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range a.Headers(req.Credentials) {
		httpReq.Header.Set(k, v)
	}

	logRequest(httpReq, req)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logResponse(resp, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return model.Message{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Message{}, provider.ErrorFromResponse(req.Provider, resp.StatusCode, respBody)
	}

	msg, err := provider.DecodeResponse(req.Provider, respBody)
	if err != nil {
		log.Printf("API Response: %v, using empty reply", err)
	}
	return msg, nil
}

// readResponse reads the body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest never logs headers or bodies; the key is reduced to a
// fingerprint.
func logRequest(httpReq *http.Request, req Request) {
	log.Printf("API Request: %s %s (provider=%s model=%s key=%s)",
		httpReq.Method, httpReq.URL.Path, req.Provider, req.Model,
		provider.Fingerprint(req.Credentials.Key(req.Provider)))
}

func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %s (%v)", resp.Status, duration.Round(time.Millisecond))
}
