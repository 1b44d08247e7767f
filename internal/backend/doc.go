// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is a client for the optional tough backend, which proxies
// chat to the providers, handles Google sign-in and exposes MCP tools.
//
// The backend is an opaque HTTP peer:
//
//	POST /chat          {messages, provider, model} -> {content}
//	GET  /auth/google   -> {authUrl}
//	GET  /auth/status   -> {authenticated}
//	GET  /mcp/tools     -> tool list
//	POST /mcp/execute   {toolName, parameters} -> result
package backend
