// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/toughchat/tough/internal/export"
	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/storage"
)

// conversationSummary is the --json shape of a list entry.
type conversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Messages  int    `json:"messages"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Current   bool   `json:"current"`
}

func summarize(convs []*model.Conversation, currentID string) []conversationSummary {
	out := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationSummary{
			ID:        c.ID,
			Title:     c.Title,
			Messages:  c.MessageCount(),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Current:   c.ID == currentID,
		})
	}
	return out
}

// resolveConversation finds a conversation by 1-based list number or by
// ID.
func resolveConversation(convs []*model.Conversation, ref string) (*model.Conversation, error) {
	if strings.HasPrefix(ref, "conv_") {
		for _, c := range convs {
			if c.ID == ref {
				return c, nil
			}
		}
		return nil, fmt.Errorf("conversation %s not found", ref)
	}
	i, err := parseIndex(ref, len(convs))
	if err != nil {
		return nil, err
	}
	return convs[i], nil
}

// confirm asks a yes/no question on the terminal. Without a terminal it
// answers no.
func confirm(question string) bool {
	if !IsTTY() {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// HandleConversations implements "conversations list|show|search|export|
// delete|clear".
func HandleConversations(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	ctrl := app.Controller

	p := NewArgParser(args.Raw, "format", "dir")
	convs := ctrl.Conversations()

	switch p.Subcommand() {
	case "", "list", "ls":
		if args.JSON {
			return printJSON(summarize(convs, ctrl.CurrentID()))
		}
		fmt.Print(storage.FormatConversationList(convs, ctrl.CurrentID()))
		return nil

	case "show", "view":
		conv, err := resolveConversation(convs, p.Positional(1))
		if err != nil {
			return err
		}
		if args.JSON {
			return printJSON(conv)
		}
		printTranscript(os.Stdout, app.Renderer, conv)
		return nil

	case "search", "find":
		query := strings.Join(p.PositionalFrom(1), " ")
		if strings.TrimSpace(query) == "" {
			return errors.New("usage: tough conversations search <text>")
		}
		found, err := app.Conversations.Search(query)
		if err != nil {
			return err
		}
		if args.JSON {
			return printJSON(summarize(found, ctrl.CurrentID()))
		}
		fmt.Print(storage.FormatConversationList(found, ctrl.CurrentID()))
		return nil

	case "export":
		conv, err := resolveConversation(convs, p.Positional(1))
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(p.FlagOrDefault("format", string(export.FormatMarkdown)))
		if err != nil {
			return err
		}
		path, err := export.ToFile(conv, format, p.FlagOrDefault("dir", "."))
		if err != nil {
			return err
		}
		if args.JSON {
			return printJSON(map[string]string{"path": path})
		}
		fmt.Println(path)
		return nil

	case "delete", "rm":
		conv, err := resolveConversation(convs, p.Positional(1))
		if err != nil {
			return err
		}
		if err := ctrl.DeleteConversation(conv.ID); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Printf("%s deleted %q\n", SuccessStyle.Render("OK"), conv.Title)
		}
		return nil

	case "clear":
		if !p.BoolFlag("yes") && !confirm(fmt.Sprintf("Delete all %d conversations?", len(convs))) {
			return errors.New("not confirmed (pass --yes to skip the prompt)")
		}
		ctrl.ClearAll()
		if !args.Quiet {
			fmt.Println(SuccessStyle.Render("All conversations deleted."))
		}
		return nil

	default:
		return fmt.Errorf("unknown conversations subcommand %q", p.Subcommand())
	}
}
