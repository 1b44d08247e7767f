// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona rewrites assistant output so the model presents itself
// under a configured persona, and lightly normalizes the markdown it emits.
//
// # Key Types
//
//   - Identity: persona name and organization substituted into replies
//   - Rule: one named pattern with its replacement
//   - Rewriter: the ordered rule chain for an Identity
//
// # Usage
//
//	rw := persona.New(persona.DefaultIdentity())
//	text := rw.Rewrite("I'm an AI language model created by OpenAI.")
//
// Rules run in a fixed order: self-identification, creator attribution,
// brand names, then markdown normalization. Every rule is a Go regexp, so
// matching time is linear in the input length.
package persona
