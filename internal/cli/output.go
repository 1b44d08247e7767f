// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/toughchat/tough/internal/model"
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Renderer turns assistant markdown into terminal output. A nil Renderer,
// or one built with markdown disabled, passes text through.
type Renderer struct {
	term *glamour.TermRenderer
}

// glamourStyle picks the glamour standard style for the terminal.
func glamourStyle() string {
	switch {
	case !ColorsEnabled():
		return "notty"
	case HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}

// NewRenderer builds a Renderer wrapping at width columns. When enabled is
// false, or glamour cannot be set up, text is printed unchanged.
func NewRenderer(enabled bool, width int) *Renderer {
	if !enabled {
		return &Renderer{}
	}
	if width <= 0 {
		width = GetTerminalWidth() - 4
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{term: tr}
}

// Render returns content formatted for the terminal. Rendering errors fall
// back to the raw text.
func (r *Renderer) Render(content string) string {
	if r == nil || r.term == nil {
		return content
	}
	out, err := r.term.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// printMessage writes one message with its role header.
func printMessage(w io.Writer, r *Renderer, msg model.Message) {
	switch msg.Role {
	case model.RoleUser:
		fmt.Fprintln(w, UserStyle.Render("You:"))
		fmt.Fprintln(w, msg.Content)
	default:
		fmt.Fprintln(w, AssistantStyle.Render(msg.Role.DisplayName()+":"))
		fmt.Fprintln(w, r.Render(msg.Content))
	}
	fmt.Fprintln(w)
}

// printTranscript writes every message of conv.
func printTranscript(w io.Writer, r *Renderer, conv *model.Conversation) {
	fmt.Fprintln(w, TitleStyle.Render(conv.Title))
	fmt.Fprintln(w, RenderSeparator())
	if conv.IsEmpty() {
		fmt.Fprintln(w, DimStyle.Render("(no messages)"))
		return
	}
	for _, msg := range conv.Messages {
		printMessage(w, r, msg)
	}
}
