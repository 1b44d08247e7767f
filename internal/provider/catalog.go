// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

// ModelDescriptor is a read-only catalog entry for a model served by a
// provider.
type ModelDescriptor struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"name"`
	Provider    Provider `json:"provider"`
}

// catalog is declaration-ordered; the first entry of each provider is its
// default model.
var catalog = []ModelDescriptor{
	// Groq
	{ID: "meta-llama/llama-4-scout-17b-16e-instruct", DisplayName: "Llama 4 Scout 17B", Provider: Groq},
	{ID: "meta-llama/llama-4-maverick-17b-128e-instruct", DisplayName: "Llama 4 Maverick 17B", Provider: Groq},
	{ID: "llama3-70b-8192", DisplayName: "Llama 3 70B 8K", Provider: Groq},
	{ID: "llama3-8b-8192", DisplayName: "Llama 3 8B 8K", Provider: Groq},
	{ID: "llama-3.1-8b-instant", DisplayName: "Llama 3.1 8B Instant", Provider: Groq},
	{ID: "llama-3.3-70b-versatile", DisplayName: "Llama 3.3 70B Versatile", Provider: Groq},
	{ID: "meta-llama/llama-guard-4-12b", DisplayName: "Llama Guard 4 12B", Provider: Groq},
	{ID: "llama-guard-3-8b", DisplayName: "Llama Guard 3 8B", Provider: Groq},
	{ID: "meta-llama/llama-prompt-guard-2-22m", DisplayName: "Llama Prompt Guard 2 22M", Provider: Groq},
	{ID: "meta-llama/llama-prompt-guard-2-86m", DisplayName: "Llama Prompt Guard 2 86M", Provider: Groq},
	{ID: "gemma2-9b-it", DisplayName: "Gemma 2 9B IT", Provider: Groq},
	{ID: "mistral-saba-24b", DisplayName: "Mistral Saba 24B", Provider: Groq},
	{ID: "qwen/qwen3-32b", DisplayName: "Qwen 3 32B", Provider: Groq},
	{ID: "qwen-qwq-32b", DisplayName: "Qwen QWQ 32B", Provider: Groq},

	// OpenAI
	{ID: "gpt-4o", DisplayName: "GPT-4o", Provider: OpenAI},
	{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo", Provider: OpenAI},
	{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Provider: OpenAI},

	// Anthropic
	{ID: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet", Provider: Anthropic},
	{ID: "claude-3-opus-20240229", DisplayName: "Claude 3 Opus", Provider: Anthropic},
	{ID: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", Provider: Anthropic},

	// Together.ai
	{ID: "meta-llama/Llama-3-70b-chat", DisplayName: "Llama 3 70B", Provider: Together},
	{ID: "mistralai/Mixtral-8x7B-Instruct-v0.1", DisplayName: "Mixtral 8x7B Instruct", Provider: Together},

	// Ollama
	{ID: "llama3", DisplayName: "Llama 3", Provider: Ollama},
	{ID: "mistral", DisplayName: "Mistral", Provider: Ollama},
	{ID: "gemma", DisplayName: "Gemma", Provider: Ollama},
}

// Catalog returns a copy of the whole model table.
func Catalog() []ModelDescriptor {
	out := make([]ModelDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// ListModels returns the models served by p in declaration order. Unknown
// providers yield an empty slice.
func ListModels(p Provider) []ModelDescriptor {
	out := []ModelDescriptor{}
	for _, m := range catalog {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// DefaultModel returns the first catalog entry for p.
func DefaultModel(p Provider) (ModelDescriptor, bool) {
	for _, m := range catalog {
		if m.Provider == p {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// LookupModel finds the descriptor with the given id among p's models.
func LookupModel(p Provider, id string) (ModelDescriptor, bool) {
	for _, m := range catalog {
		if m.Provider == p && m.ID == id {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}
