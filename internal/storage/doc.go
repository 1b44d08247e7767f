// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists tough's local state: settings, credentials and
// the conversation list.
//
// All state lives in a flat string key/value store. Three backends are
// provided:
//
//   - FileKV: a single JSON object file, written atomically with 0600 permissions
//   - SQLiteKV: a pure Go SQLite database (modernc.org/sqlite)
//   - MemoryKV: process-local, for tests and ephemeral runs
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, dataDir)
//	if err != nil {
//	    return err
//	}
//	defer kv.Close()
//
//	store := storage.NewConversationStore(kv)
//	convs, err := store.Load()
//
// A corrupt or missing conversation record loads as an empty list; the
// returned error is informational and wraps ErrCorruptData. A state file
// that is not JSON is moved to state.json.corrupt when it is opened.
package storage
