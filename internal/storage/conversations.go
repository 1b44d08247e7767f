// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/toughchat/tough/internal/model"
)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists the whole conversation list as one compact JSON
// array under KeyConversations, newest first.
type ConversationStore struct {
	kv KV
}

// NewConversationStore creates a store backed by kv.
func NewConversationStore(kv KV) *ConversationStore {
	return &ConversationStore{kv: kv}
}

// Load returns the stored conversations. It always returns a usable list:
// missing data yields an empty list with a nil error, corrupt data yields an
// empty list with an error wrapping ErrCorruptData.
func (s *ConversationStore) Load() ([]*model.Conversation, error) {
	raw, ok, err := s.kv.Get(KeyConversations)
	if err != nil {
		return []*model.Conversation{}, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []*model.Conversation{}, nil
	}
	return Decode([]byte(raw))
}

// Save replaces the stored list.
func (s *ConversationStore) Save(convs []*model.Conversation) error {
	data, err := Encode(convs)
	if err != nil {
		return err
	}
	return s.kv.Set(KeyConversations, string(data))
}

// Get loads a single conversation by ID.
func (s *ConversationStore) Get(id string) (*model.Conversation, error) {
	convs, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrConversationNotFound
}

// Delete removes one conversation record.
func (s *ConversationStore) Delete(id string) error {
	convs, err := s.Load()
	if err != nil {
		return err
	}
	kept := make([]*model.Conversation, 0, len(convs))
	found := false
	for _, c := range convs {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrConversationNotFound
	}
	return s.Save(kept)
}

// Clear removes every conversation and the current selection.
func (s *ConversationStore) Clear() error {
	if err := s.kv.Delete(KeyConversations); err != nil {
		return err
	}
	return s.kv.Delete(KeyCurrentID)
}

// CurrentID returns the persisted current conversation ID, or "".
func (s *ConversationStore) CurrentID() (string, error) {
	id, _, err := s.kv.Get(KeyCurrentID)
	return id, err
}

// SetCurrentID persists the current selection. An empty id clears it.
func (s *ConversationStore) SetCurrentID(id string) error {
	if id == "" {
		return s.kv.Delete(KeyCurrentID)
	}
	return s.kv.Set(KeyCurrentID, id)
}

// Search returns conversations whose title or any message contains query,
// case-insensitively. An empty query returns everything.
func (s *ConversationStore) Search(query string) ([]*model.Conversation, error) {
	convs, err := s.Load()
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return convs, nil
	}

	var results []*model.Conversation
	for _, c := range convs {
		if matches(c, query) {
			results = append(results, c)
		}
	}
	return results, nil
}

func matches(c *model.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(c.Title), query) {
		return true
	}
	for _, msg := range c.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode serializes convs as compact JSON without HTML escaping. Decoding
// the result and encoding it again yields identical bytes.
func Encode(convs []*model.Conversation) ([]byte, error) {
	if convs == nil {
		convs = []*model.Conversation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(convs); err != nil {
		return nil, fmt.Errorf("failed to encode conversations: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a stored conversation list. Null entries are dropped and
// missing message arrays are treated as empty.
func Decode(data []byte) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return []*model.Conversation{}, fmt.Errorf("%w: conversations: %v", ErrCorruptData, err)
	}

	out := make([]*model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c == nil {
			continue
		}
		if c.Messages == nil {
			c.Messages = []model.Message{}
		}
		out = append(out, c)
	}
	return out, nil
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

const (
	colIndex    = 4
	colTitle    = 40
	colMessages = 8
)

// FormatConversationList renders convs as a table for the terminal. The
// current conversation is marked with "*". Widths are display columns, so
// wide characters in titles keep the columns aligned.
func FormatConversationList(convs []*model.Conversation, currentID string) string {
	if len(convs) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(runewidth.FillRight("#", colIndex) + " " +
		runewidth.FillRight("Title", colTitle) + " " +
		runewidth.FillRight("Messages", colMessages) + " Updated\n")
	sb.WriteString(strings.Repeat("-", colIndex+colTitle+colMessages+20) + "\n")

	for i, c := range convs {
		marker := " "
		if c.ID == currentID {
			marker = "*"
		}
		title := runewidth.Truncate(c.Title, colTitle, "...")
		sb.WriteString(runewidth.FillRight(marker+strconv.Itoa(i+1), colIndex) + " " +
			runewidth.FillRight(title, colTitle) + " " +
			runewidth.FillRight(strconv.Itoa(len(c.Messages)), colMessages) + " " +
			c.Updated().Format("2006-01-02 15:04") + "\n")
	}
	return sb.String()
}
