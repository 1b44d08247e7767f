// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
)

const corruptSuffix = ".corrupt"

// =============================================================================
// FILE STORE
// =============================================================================

// FileKV keeps every key in one JSON object file. Each operation re-reads
// the file so edits made by another process are picked up; writes replace
// the file atomically.
type FileKV struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenFileKV opens the store at path. The file is created on first write.
// An existing file that is not a JSON object is moved aside to
// <path>.corrupt and the store starts empty.
func OpenFileKV(path string) (*FileKV, error) {
	kv := &FileKV{path: path}
	_, err := kv.read()
	switch {
	case err == nil:
		return kv, nil
	case errors.Is(err, ErrCorruptData):
		log.Printf("Storage: %v; moving it to %s", err, path+corruptSuffix)
		if err := os.Rename(path, path+corruptSuffix); err != nil {
			return nil, fmt.Errorf("failed to move corrupt store aside: %w", err)
		}
		return kv, nil
	default:
		return nil, err
	}
}

// Path returns the backing file path.
func (kv *FileKV) Path() string {
	return kv.path
}

// Get implements KV.
func (kv *FileKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.closed {
		return "", false, ErrClosed
	}
	state, err := kv.read()
	if err != nil {
		return "", false, err
	}
	v, ok := state[key]
	return v, ok, nil
}

// Set implements KV.
func (kv *FileKV) Set(key, value string) error {
	return kv.update(func(state map[string]string) {
		state[key] = value
	})
}

// Delete implements KV.
func (kv *FileKV) Delete(key string) error {
	return kv.update(func(state map[string]string) {
		delete(state, key)
	})
}

// Keys returns every stored key.
func (kv *FileKV) Keys() ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	state, err := kv.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close implements KV.
func (kv *FileKV) Close() error {
	kv.mu.Lock()
	kv.closed = true
	kv.mu.Unlock()
	return nil
}

func (kv *FileKV) update(fn func(state map[string]string)) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.closed {
		return ErrClosed
	}
	state, err := kv.read()
	if err != nil {
		return err
	}
	fn(state)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(kv.path, data, filePerm)
}

// read loads the state file. A missing or empty file is an empty store.
func (kv *FileKV) read() (map[string]string, error) {
	state := make(map[string]string)

	data, err := os.ReadFile(kv.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, kv.path, err)
	}
	return state, nil
}
