// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider describes the LLM providers tough can talk to and
// translates between the provider-agnostic message model and each
// provider's wire format.
//
// # Key Types
//
//   - Provider: enumerated provider identifier (groq, openai, anthropic, together, ollama)
//   - ModelDescriptor: static catalog entry for a model served by a provider
//   - Adapter: per-provider {Endpoint, Headers, Encode, Decode} strategy
//   - APIError: non-success HTTP response from a provider
//
// # Usage
//
// Build and parse a call for the active provider:
//
//	a := provider.For(provider.Anthropic)
//	url := a.Endpoint(provider.Config{})
//	hdr := a.Headers(creds)
//	body, err := a.Encode("claude-3-haiku-20240307", messages)
//	...
//	msg := a.Decode(respBody)
//
// Decoding is lenient: a response that lacks the expected fields yields an
// empty assistant message instead of an error.
package provider
