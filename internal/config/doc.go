// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for tough.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Where settings and conversations are kept
//   - HTTPConfig: Provider call timeout and client-side pacing
//   - PersonaConfig: Identity substituted into assistant replies
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (TOUGH_*, OLLAMA_HOST, vendor API key variables)
//   - ~/.tough/config.toml
//   - ~/.tough/config.json
//   - Built-in defaults
//
// Settings persisted by the chat client (active provider, stored keys)
// always win over default_provider and environment keys.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Timeout()
package config
