// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/storage"
)

// now is replaced in tests for stable footers.
var now = time.Now

// =============================================================================
// FORMATS
// =============================================================================

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

var (
	// ErrUnknownFormat is returned for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrEmptyConversation is returned for a conversation with no messages.
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// ParseFormat accepts md, markdown, html, htm and json in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q (use md, html or json)", ErrUnknownFormat, s)
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds a header with dates and message count.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Markdown renders conv as Markdown with default options.
func Markdown(conv *model.Conversation) ([]byte, error) {
	return NewMarkdownExporter(nil).Export(conv)
}

// HTML renders conv as a standalone HTML page with default options.
func HTML(conv *model.Conversation) ([]byte, error) {
	return NewHTMLExporter(nil).Export(conv)
}

// ToFile writes conv to dir as <sanitized-title>.<ext> and returns the path.
func ToFile(conv *model.Conversation, format Format, dir string) (string, error) {
	exporter, err := New(format, nil)
	if err != nil {
		return "", err
	}
	return ExportToFile(conv, exporter, dir)
}

// ExportToFile exports conv with exporter into dir. An existing file of the
// same name is replaced atomically.
func ExportToFile(conv *model.Conversation, exporter Exporter, dir string) (string, error) {
	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, sanitizeFilename(conv.Title)+exporter.FileExtension())
	if err := storage.WriteFileAtomic(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return ErrEmptyConversation
	}
	return nil
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "...")

	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	out := strings.Trim(string(result), "._-")
	if out == "" {
		return "conversation"
	}
	return out
}

var titleCaser = cases.Title(language.English)

// roleLabel title-cases the role name.
func roleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}
	return titleCaser.String(string(role))
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func footerDate() string {
	return now().Format("January 2, 2006 at 3:04 PM")
}
