// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings holds the user's provider selection and credentials and
// persists them through a storage.KV.
package settings

import (
	"fmt"
	"strings"

	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/storage"
)

// Settings is the persisted selection state.
type Settings struct {
	Provider    provider.Provider
	Credentials provider.Credentials
	OllamaURL   string

	// ProviderStored reports whether Provider came from storage rather
	// than the first-run default.
	ProviderStored bool
}

// Default returns settings for a first run.
func Default() Settings {
	return Settings{
		Provider:    provider.Default,
		Credentials: provider.Credentials{},
		OllamaURL:   provider.DefaultOllamaURL,
	}
}

// ProviderConfig returns the endpoint configuration for the adapters.
func (s Settings) ProviderConfig() provider.Config {
	return provider.Config{OllamaURL: s.OllamaURL}
}

// HasCredential reports whether the active provider can be called: it has
// an API key, or it needs none.
func (s Settings) HasCredential() bool {
	return !s.Provider.RequiresKey() || s.Credentials.Has(s.Provider)
}

// Clone returns a copy that shares no maps with s.
func (s Settings) Clone() Settings {
	s.Credentials = s.Credentials.Clone()
	return s
}

// SeedCredentials fills in keys from seed for providers that have none.
// Stored keys always win.
func (s *Settings) SeedCredentials(seed provider.Credentials) {
	if s.Credentials == nil {
		s.Credentials = provider.Credentials{}
	}
	for p, key := range seed {
		if !s.Credentials.Has(p) && strings.TrimSpace(key) != "" {
			s.Credentials[p] = key
		}
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Persister loads and saves Settings.
type Persister interface {
	Load() (Settings, error)
	Save(Settings) error
}

// credentialKeys maps providers to their storage keys. Ollama has a URL
// instead of a key.
var credentialKeys = map[provider.Provider]string{
	provider.Groq:      storage.KeyGroqKey,
	provider.OpenAI:    storage.KeyOpenAIKey,
	provider.Anthropic: storage.KeyAnthropicKey,
	provider.Together:  storage.KeyTogetherKey,
}

// KVPersister stores Settings under the well-known storage keys.
type KVPersister struct {
	kv storage.KV
}

// NewKVPersister creates a persister backed by kv.
func NewKVPersister(kv storage.KV) *KVPersister {
	return &KVPersister{kv: kv}
}

// Load implements Persister. Missing keys take their defaults. An unknown
// stored provider falls back to the default provider and is reported
// alongside the otherwise valid settings.
func (p *KVPersister) Load() (Settings, error) {
	s := Default()

	raw, ok, err := p.kv.Get(storage.KeyProvider)
	if err != nil {
		return s, err
	}
	var parseErr error
	if ok && raw != "" {
		parsed, err := provider.Parse(raw)
		if err != nil {
			parseErr = fmt.Errorf("stored provider: %w", err)
		} else {
			s.Provider = parsed
			s.ProviderStored = true
		}
	}

	for prov, key := range credentialKeys {
		v, ok, err := p.kv.Get(key)
		if err != nil {
			return s, err
		}
		if ok {
			s.Credentials[prov] = v
		}
	}

	url, ok, err := p.kv.Get(storage.KeyOllamaURL)
	if err != nil {
		return s, err
	}
	if ok && strings.TrimSpace(url) != "" {
		s.OllamaURL = url
	}

	return s, parseErr
}

// Save implements Persister.
func (p *KVPersister) Save(s Settings) error {
	prov := s.Provider
	if prov == "" {
		prov = provider.Default
	}
	if err := p.kv.Set(storage.KeyProvider, string(prov)); err != nil {
		return err
	}
	for pv, key := range credentialKeys {
		if err := p.kv.Set(key, s.Credentials[pv]); err != nil {
			return err
		}
	}
	url := s.OllamaURL
	if url == "" {
		url = provider.DefaultOllamaURL
	}
	return p.kv.Set(storage.KeyOllamaURL, url)
}
