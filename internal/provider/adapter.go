// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/toughchat/tough/internal/model"
)

// DefaultOllamaURL is the base URL of a local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

const (
	groqEndpoint      = "https://api.groq.com/openai/v1/chat/completions"
	openAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	togetherEndpoint  = "https://api.together.xyz/v1/chat/completions"
	ollamaChatPath    = "/api/chat"

	// AnthropicVersion is sent with every Anthropic request.
	AnthropicVersion = "2023-06-01"
)

// Config carries the endpoint settings that the user can change.
type Config struct {
	// OllamaURL is the Ollama base URL. Empty selects DefaultOllamaURL.
	OllamaURL string
}

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Adapter knows where to send a chat completion for one provider and how to
// encode the request and decode the response.
type Adapter interface {
	// Provider returns the provider this adapter serves.
	Provider() Provider

	// Endpoint returns the full chat-completion URL.
	Endpoint(cfg Config) string

	// Headers returns the HTTP headers for a request, including auth built
	// from the provider's key in creds. Keys are never validated here.
	Headers(creds Credentials) map[string]string

	// Encode builds the JSON request body for model and messages.
	Encode(modelID string, messages []model.Message) ([]byte, error)

	// Decode extracts the assistant message from a success response body.
	// It never fails; missing fields yield an empty assistant message.
	Decode(body []byte) model.Message
}

// schema is the wire-format half of an adapter.
type schema interface {
	encode(modelID string, messages []model.Message) ([]byte, error)
	decode(body []byte) model.Message
}

// authScheme adds provider-specific auth headers for key.
type authScheme func(h map[string]string, key string)

func bearerAuth(h map[string]string, key string) {
	h["Authorization"] = "Bearer " + key
}

func anthropicAuth(h map[string]string, key string) {
	h["x-api-key"] = key
	h["anthropic-version"] = AnthropicVersion
}

// adapter binds an endpoint, auth scheme and schema to a provider.
type adapter struct {
	provider Provider
	endpoint func(cfg Config) string
	auth     authScheme
	schema   schema
}

func (a *adapter) Provider() Provider { return a.provider }

func (a *adapter) Endpoint(cfg Config) string { return a.endpoint(cfg) }

func (a *adapter) Headers(creds Credentials) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if a.auth != nil {
		a.auth(h, creds.Key(a.provider))
	}
	return h
}

func (a *adapter) Encode(modelID string, messages []model.Message) ([]byte, error) {
	if messages == nil {
		messages = []model.Message{}
	}
	return a.schema.encode(modelID, messages)
}

func (a *adapter) Decode(body []byte) model.Message {
	return a.schema.decode(body)
}

func fixed(url string) func(Config) string {
	return func(Config) string { return url }
}

func ollamaEndpoint(cfg Config) string {
	base := strings.TrimSpace(cfg.OllamaURL)
	if base == "" {
		base = DefaultOllamaURL
	}
	return strings.TrimRight(base, "/") + ollamaChatPath
}

// =============================================================================
// REGISTRY
// =============================================================================

var adapters = map[Provider]*adapter{
	Groq:      {provider: Groq, endpoint: fixed(groqEndpoint), auth: bearerAuth, schema: openAISchema{}},
	OpenAI:    {provider: OpenAI, endpoint: fixed(openAIEndpoint), auth: bearerAuth, schema: openAISchema{}},
	Anthropic: {provider: Anthropic, endpoint: fixed(anthropicEndpoint), auth: anthropicAuth, schema: anthropicSchema{}},
	Together:  {provider: Together, endpoint: fixed(togetherEndpoint), auth: bearerAuth, schema: openAISchema{}},
	Ollama:    {provider: Ollama, endpoint: ollamaEndpoint, schema: ollamaSchema{}},
}

// fallback serves unrecognized providers: OpenAI-compatible body and
// response shape at the Groq endpoint, with no auth header.
var fallback = &adapter{endpoint: fixed(groqEndpoint), schema: openAISchema{}}

// For returns the adapter for p. Unknown providers get the OpenAI-compatible
// fallback so callers never have to handle a nil adapter.
func For(p Provider) Adapter {
	if a, ok := adapters[p]; ok {
		return a
	}
	return fallback
}

// Lookup returns the adapter for p and whether p is a known provider.
func Lookup(p Provider) (Adapter, bool) {
	a, ok := adapters[p]
	if !ok {
		return nil, false
	}
	return a, true
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// ResolveEndpoint returns the chat-completion URL for p.
func ResolveEndpoint(p Provider, cfg Config) string {
	return For(p).Endpoint(cfg)
}

// BuildAuthHeaders returns the request headers for p.
func BuildAuthHeaders(p Provider, creds Credentials) map[string]string {
	return For(p).Headers(creds)
}

// BuildRequestBody encodes the request body for p.
func BuildRequestBody(p Provider, modelID string, messages []model.Message) ([]byte, error) {
	return For(p).Encode(modelID, messages)
}

// ParseResponse decodes the assistant message from a success body for p.
func ParseResponse(p Provider, body []byte) model.Message {
	return For(p).Decode(body)
}

// ErrUndecodable reports a success body that is not valid JSON.
var ErrUndecodable = errors.New("response body is not valid JSON")

// DecodeResponse is ParseResponse plus a diagnostic error when the body could
// not be decoded at all. The returned message is usable either way.
func DecodeResponse(p Provider, body []byte) (model.Message, error) {
	msg := ParseResponse(p, body)
	if !json.Valid(body) {
		return msg, fmt.Errorf("%s: %w", p, ErrUndecodable)
	}
	return msg, nil
}
