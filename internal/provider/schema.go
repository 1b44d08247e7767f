// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"

	"github.com/toughchat/tough/internal/model"
)

// AnthropicMaxTokens is the fixed completion budget sent to Anthropic.
const AnthropicMaxTokens = 4096

// =============================================================================
// REQUEST BODIES
// =============================================================================

// Field order in these structs is the order keys appear on the wire.

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
}

type anthropicRequest struct {
	Model     string          `json:"model"`
	Messages  []model.Message `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

// =============================================================================
// SCHEMAS
// =============================================================================

// openAISchema is the chat-completions shape shared by Groq, OpenAI and
// Together.
type openAISchema struct{}

func (openAISchema) encode(modelID string, messages []model.Message) ([]byte, error) {
	return json.Marshal(chatRequest{Model: modelID, Messages: messages})
}

func (openAISchema) decode(body []byte) model.Message {
	root, ok := parseJSON(body)
	if !ok {
		return emptyReply()
	}
	msg, ok := dig(root, "choices", 0, "message")
	if !ok {
		return emptyReply()
	}
	m, ok := msg.(map[string]any)
	if !ok {
		return emptyReply()
	}
	role := model.Role(stringValue(m["role"]))
	if role == "" {
		role = model.RoleAssistant
	}
	return model.Message{Role: role, Content: stringValue(m["content"])}
}

// anthropicSchema is the Messages API shape.
type anthropicSchema struct{}

func (anthropicSchema) encode(modelID string, messages []model.Message) ([]byte, error) {
	return json.Marshal(anthropicRequest{Model: modelID, Messages: messages, MaxTokens: AnthropicMaxTokens})
}

func (anthropicSchema) decode(body []byte) model.Message {
	root, ok := parseJSON(body)
	if !ok {
		return emptyReply()
	}
	text, _ := dig(root, "content", 0, "text")
	return model.NewAssistantMessage(stringValue(text))
}

// ollamaSchema is the Ollama /api/chat shape with streaming disabled.
type ollamaSchema struct{}

func (ollamaSchema) encode(modelID string, messages []model.Message) ([]byte, error) {
	return json.Marshal(ollamaRequest{Model: modelID, Messages: messages, Stream: false})
}

func (ollamaSchema) decode(body []byte) model.Message {
	root, ok := parseJSON(body)
	if !ok {
		return emptyReply()
	}
	content, _ := dig(root, "message", "content")
	return model.NewAssistantMessage(stringValue(content))
}

// =============================================================================
// LENIENT JSON ACCESS
// =============================================================================

func emptyReply() model.Message {
	return model.NewAssistantMessage("")
}

func parseJSON(body []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// dig walks v along path, where each element is an object key (string) or
// an array index (int). It reports false as soon as a step does not exist.
func dig(v any, path ...any) (any, bool) {
	cur := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			next, ok := obj[key]
			if !ok {
				return nil, false
			}
			cur = next
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			cur = arr[key]
		default:
			return nil, false
		}
	}
	return cur, true
}

// stringValue returns v if it is a string and "" otherwise.
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
