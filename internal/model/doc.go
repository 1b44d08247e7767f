// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Role: message role enumeration (user, assistant, system)
//   - Message: a single {role, content} chat turn, immutable once created
//   - Conversation: ordered messages plus id, title and timestamps
//
// # Usage
//
//	conv := model.NewConversation("")
//	conv.Append(model.NewUserMessage("Hello!"))
//	fmt.Println(conv.Title) // "Hello!"
//
// Timestamps are stored as Unix milliseconds so persisted conversations keep
// the same JSON layout as the browser client's local storage.
package model
