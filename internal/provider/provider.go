// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// PROVIDER IDENTIFIERS
// =============================================================================

// Provider identifies an LLM serving endpoint with its own wire schema and
// auth scheme.
type Provider string

const (
	Groq      Provider = "groq"
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Together  Provider = "together"
	Ollama    Provider = "ollama"
)

// Default is the provider selected when nothing has been persisted yet.
const Default = Groq

// all lists providers in the order they are offered to the user.
var all = []Provider{Groq, OpenAI, Anthropic, Together, Ollama}

// ErrUnknownProvider is returned by Parse for identifiers outside the catalog.
var ErrUnknownProvider = errors.New("unknown provider")

// All returns every supported provider in display order.
func All() []Provider {
	out := make([]Provider, len(all))
	copy(out, all)
	return out
}

// Parse converts a user-supplied name into a Provider. Matching is
// case-insensitive and ignores surrounding whitespace.
func Parse(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	for _, known := range all {
		if p == known {
			return true
		}
	}
	return false
}

// String returns the provider identifier.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns the name shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case Groq:
		return "Groq"
	case OpenAI:
		return "OpenAI"
	case Anthropic:
		return "Anthropic"
	case Together:
		return "Together AI"
	case Ollama:
		return "Ollama (local)"
	default:
		return "Unknown Provider"
	}
}

// RequiresKey reports whether calls to p need an API key. The self-hosted
// provider is reached by URL only.
func (p Provider) RequiresKey() bool {
	return p != Ollama
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials holds one API key per provider.
type Credentials map[Provider]string

// Key returns the trimmed API key for p, or "" if none is stored.
func (c Credentials) Key(p Provider) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c[p])
}

// Has reports whether a non-empty key is stored for p.
func (c Credentials) Has(p Provider) bool {
	return c.Key(p) != ""
}

// Clone returns an independent copy.
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Fingerprint returns a short SHA-256 based identifier for an API key so it
// can be logged without exposing any part of the key.
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}
