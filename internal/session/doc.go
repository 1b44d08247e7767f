// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one user's chat state: the active provider and
// model, credentials, the conversation list and the current conversation.
//
// State changes are persisted through injected collaborators
// (settings.Persister and a ConversationStore). Persistence failures are
// logged and never interrupt the caller.
//
// # Key Types
//
//   - Controller: the session state machine
//   - Sender: executes one chat call (transport.Client, or the backend
//     relay through SenderFunc)
//   - ConfigError: a required API key is missing
//
// # Usage
//
//	ctl, err := session.New(session.Options{
//	    Persister: settings.NewKVPersister(kv),
//	    Store:     storage.NewConversationStore(kv),
//	    Sender:    transport.NewClient(),
//	    Rewriter:  persona.Default(),
//	})
//	reply, err := ctl.Send(ctx, "hi")
//
// Only one Send may be in flight at a time; a concurrent Send returns
// ErrBusy.
package session
