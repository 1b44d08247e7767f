// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTitle is the placeholder title of a conversation that has not
	// seen a user message yet.
	DefaultTitle = "New Chat"

	// TitleMaxRunes is the number of characters of the first user message
	// kept as the conversation title.
	TitleMaxRunes = 50
)

// now is swapped out by tests that need stable timestamps.
var now = time.Now

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered message history with its metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // Unix milliseconds
	UpdatedAt int64     `json:"updatedAt"` // Unix milliseconds
}

// NewConversation creates an empty conversation with a generated ID.
// An empty title selects DefaultTitle.
func NewConversation(title string) *Conversation {
	ts := now()
	if title == "" {
		title = DefaultTitle
	}
	return &Conversation{
		ID:        NewConversationID(ts),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: ts.UnixMilli(),
		UpdatedAt: ts.UnixMilli(),
	}
}

// NewConversationID returns an identifier of the form conv_<millis>_<suffix>.
func NewConversationID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("conv_%d_%s", ts.UnixMilli(), suffix)
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// SetMessages replaces the message history, bumps UpdatedAt and derives the
// title from the first user message while the title is still the default.
func (c *Conversation) SetMessages(messages []Message) {
	c.Messages = messages
	c.UpdatedAt = now().UnixMilli()

	if c.Title != DefaultTitle || len(messages) == 0 {
		return
	}
	for _, msg := range messages {
		if msg.Role == RoleUser {
			c.Title = DeriveTitle(msg.Content)
			return
		}
	}
}

// Append adds a message to the end of the history. The existing slice is
// copied so snapshots previously handed out stay unchanged.
func (c *Conversation) Append(msg Message) {
	next := make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(next, c.Messages)
	c.SetMessages(append(next, msg))
}

// History returns a copy of the message history.
func (c *Conversation) History() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// LastMessage returns the most recent message and false if there is none.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Created returns the creation time.
func (c *Conversation) Created() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// Updated returns the last update time.
func (c *Conversation) Updated() time.Time {
	return time.UnixMilli(c.UpdatedAt)
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	if c.Messages != nil {
		cp.Messages = c.History()
	}
	return &cp
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// DeriveTitle returns the first TitleMaxRunes characters of content, with
// "..." appended when the content is longer. Content is NFC-normalized first
// so a combining sequence is counted as the character it displays as.
func DeriveTitle(content string) string {
	return truncate(norm.NFC.String(content), TitleMaxRunes)
}
