// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/toughchat/tough/internal/session"
)

// askResult is the --json shape of an answer.
type askResult struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
}

// buildQuery joins the question with piped input. Either may be empty.
func buildQuery(question, piped string) string {
	switch {
	case question == "":
		return piped
	case piped == "":
		return question
	default:
		return question + "\n\n" + piped
	}
}

// HandleAsk sends one question and prints the answer. The conversation is
// only kept with --save.
func HandleAsk(args Args) error {
	piped, err := readPiped()
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	query := buildQuery(args.Query, piped)
	if query == "" {
		return errors.New(`usage: tough ask "question"`)
	}

	app, err := newApp(args, !args.Save)
	if err != nil {
		return err
	}
	defer app.Close()
	ctrl := app.Controller

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Without --save the reply goes to a fresh in-memory conversation.
	if args.Save {
		ctrl.CreateConversation("")
	}

	start := time.Now()
	reply, err := ctrl.Send(ctx, query)
	if err != nil {
		var cfgErr *session.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("%w (run 'tough key %s')", err, cfgErr.Provider)
		}
		return err
	}

	if args.JSON {
		res := askResult{
			Provider:   string(ctrl.Provider()),
			Model:      ctrl.Model(),
			Content:    reply.Content,
			DurationMS: time.Since(start).Milliseconds(),
		}
		if args.Save {
			res.ConversationID = ctrl.CurrentID()
		}
		return printJSON(res)
	}

	if args.Quiet || !IsStdoutTTY() {
		fmt.Println(reply.Content)
		return nil
	}
	fmt.Println(app.Renderer.Render(reply.Content))
	return nil
}
