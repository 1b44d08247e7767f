// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations out as Markdown, HTML or JSON.
//
// # Key Types
//
//   - Format: Export format enumeration (md, html, json)
//   - Exporter: Converts a conversation to bytes of one format
//   - Options: Metadata and theme settings
//
// HTML output escapes all message text and highlights fenced code blocks
// with chroma using inline styles, so the file is self-contained.
//
// # Usage
//
//	data, err := export.Markdown(conv)
//
//	path, err := export.ToFile(conv, export.FormatHTML, ".")
package export
