// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport executes one provider chat completion over HTTP.
//
// The provider package decides the endpoint, headers and body; this package
// sends the request, caps the response size, maps non-2xx responses to
// *provider.APIError and decodes the reply. Calls are never retried.
//
// # Usage
//
//	c := transport.NewClient().WithTimeout(cfg.Timeout()).WithRateLimit(rpm)
//	reply, err := c.Chat(ctx, transport.Request{
//	    Provider:    provider.Groq,
//	    Model:       "llama3-8b-8192",
//	    Messages:    conv.History(),
//	    Credentials: creds,
//	})
package transport
