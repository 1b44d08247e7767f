// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Well-known keys.
const (
	KeyProvider      = "ai_provider"
	KeyGroqKey       = "groq_key"
	KeyOpenAIKey     = "openai_key"
	KeyAnthropicKey  = "anthropic_key"
	KeyTogetherKey   = "together_key"
	KeyOllamaURL     = "ollama_url"
	KeyConversations = "conversations"
	KeyCurrentID     = "current_conversation_id"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	stateFileName  = "state.json"
	sqliteFileName = "tough.db"
)

// KV is a flat string key/value store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the store's resources.
	Close() error
}

// Open creates the KV backend named by backend inside dataDir.
func Open(backend, dataDir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return OpenFileKV(filepath.Join(dataDir, stateFileName))
	case BackendSQLite:
		return OpenSQLiteKV(filepath.Join(dataDir, sqliteFileName))
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Path returns the on-disk location used by backend in dataDir, or "" for
// backends that are not file based.
func Path(backend, dataDir string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return filepath.Join(dataDir, stateFileName)
	case BackendSQLite:
		return filepath.Join(dataDir, sqliteFileName)
	default:
		return ""
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConversationNotFound is returned when a conversation doesn't exist.
	// Use errors.Is(err, ErrConversationNotFound) to check for this error.
	ErrConversationNotFound = &StoreError{Message: "conversation not found"}

	// ErrCorruptData is wrapped by errors for records that could not be decoded.
	ErrCorruptData = &StoreError{Message: "stored data is corrupt"}

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = &StoreError{Message: "unknown storage backend"}

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = &StoreError{Message: "store is closed"}
)

// StoreError represents a storage error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
