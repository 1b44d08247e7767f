// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/toughchat/tough/internal/export"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/session"
	"github.com/toughchat/tough/internal/storage"
)

// historyFileName is the REPL input history, kept next to the store.
const historyFileName = "chat_history"

const chatHelp = `Commands:
  /help                 Show this help
  /provider [name]      Show or switch provider
  /model [id]           Show or switch model
  /models               List models for the active provider
  /new                  Start a new conversation
  /list                 List conversations
  /switch <n>           Switch to conversation n
  /delete [n]           Delete conversation n (default: current)
  /clear                Delete all conversations
  /export <md|html|json> Export the current conversation to this directory
  /quit                 Exit (also Ctrl+D)

Ctrl+C cancels a request in progress; at the prompt it exits.`

// =============================================================================
// INPUT
// =============================================================================

// lineEditor wraps liner with a history file.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor(dataDir string) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &lineEditor{
		line:        line,
		historyFile: filepath.Join(dataDir, historyFileName),
	}
	if f, err := os.Open(e.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads one line and records it in history.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close writes history with owner-only permissions and restores the
// terminal.
func (e *lineEditor) Close() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return fmt.Errorf("%w (use 'tough ask' for piped input)", err)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	app.WatchSettings(nil)

	repl := &chatREPL{app: app, out: os.Stdout, quiet: args.Quiet, exportDir: "."}
	if !args.Quiet {
		repl.printWelcome()
	}

	editor := newLineEditor(app.Config.Storage.DataDir)
	defer editor.Close()

	for {
		input, err := editor.Prompt(repl.prompt())
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal.
			fmt.Fprintln(repl.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			quit, err := repl.handleCommand(input)
			if err != nil {
				repl.printError(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := repl.sendInterruptible(input); err != nil {
			repl.printError(err)
		}
	}
}

// =============================================================================
// REPL
// =============================================================================

// chatREPL holds the state of one interactive session. Input is only read
// between requests, so at most one request is in flight.
type chatREPL struct {
	app       *App
	out       io.Writer
	quiet     bool
	exportDir string
}

func (r *chatREPL) prompt() string {
	return PromptStyle.Render(string(r.app.Controller.Provider())+"> ")
}

func (r *chatREPL) printWelcome() {
	ctrl := r.app.Controller
	fmt.Fprintln(r.out, TitleStyle.Render("tough chat"))
	fmt.Fprintln(r.out, RenderField("Provider", ctrl.Provider().DisplayName()))
	fmt.Fprintln(r.out, RenderField("Model", ctrl.Model()))
	if r.app.Config.Backend.Enabled {
		fmt.Fprintln(r.out, RenderField("Backend", r.app.Backend.BaseURL()))
	}
	if !ctrl.HasCredential() {
		fmt.Fprintln(r.out, WarningStyle.Render(
			fmt.Sprintf("No %s API key set. Run 'tough key %s' or 'tough setup'.",
				ctrl.Provider().DisplayName(), ctrl.Provider())))
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printError(err error) {
	var cfgErr *session.ConfigError
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
	case errors.As(err, &cfgErr):
		fmt.Fprintf(r.out, "%s %v (run 'tough key %s')\n", ErrorStyle.Render("[Error]"), err, cfgErr.Provider)
	default:
		fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
	}
}

// sendInterruptible sends prompt with a context that Ctrl+C cancels.
func (r *chatREPL) sendInterruptible(prompt string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return r.send(ctx, prompt)
}

// send runs one request and prints the reply.
func (r *chatREPL) send(ctx context.Context, prompt string) error {
	if !r.quiet {
		fmt.Fprintln(r.out, DimStyle.Render("Thinking..."))
	}
	reply, err := r.app.Controller.Send(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out)
	printMessage(r.out, r.app.Renderer, reply)
	return nil
}

// handleCommand runs a slash command. It reports true when the loop
// should exit.
func (r *chatREPL) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]
	ctrl := r.app.Controller

	switch cmd {
	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, chatHelp)

	case "/quit", "/q", "/exit":
		return true, nil

	case "/provider", "/p":
		if len(rest) == 0 {
			r.printProviders()
			return false, nil
		}
		p, err := provider.Parse(rest[0])
		if err != nil {
			return false, err
		}
		if err := ctrl.SetProvider(p); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s %s (model %s)\n", SuccessStyle.Render("Provider:"), p.DisplayName(), ctrl.Model())

	case "/model", "/m":
		if len(rest) == 0 {
			fmt.Fprintln(r.out, RenderField("Model", ctrl.Model()))
			return false, nil
		}
		if err := ctrl.SetModel(rest[0]); err != nil {
			return false, fmt.Errorf("%w (see /models)", err)
		}
		fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Model:"), ctrl.Model())

	case "/models":
		fmt.Fprint(r.out, formatModelList(ctrl.Provider(), ctrl.Model()))

	case "/new", "/n":
		ctrl.CreateConversation("")
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new conversation."))

	case "/list", "/l", "/ls":
		fmt.Fprint(r.out, storage.FormatConversationList(ctrl.Conversations(), ctrl.CurrentID()))

	case "/switch", "/s":
		if len(rest) == 0 {
			return false, errors.New("usage: /switch <n>")
		}
		convs := ctrl.Conversations()
		i, err := parseIndex(rest[0], len(convs))
		if err != nil {
			return false, err
		}
		if err := ctrl.SelectConversation(convs[i].ID); err != nil {
			return false, err
		}
		printTranscript(r.out, r.app.Renderer, convs[i])

	case "/delete", "/d":
		id := ctrl.CurrentID()
		if len(rest) > 0 {
			convs := ctrl.Conversations()
			i, err := parseIndex(rest[0], len(convs))
			if err != nil {
				return false, err
			}
			id = convs[i].ID
		}
		if id == "" {
			return false, errors.New("no conversation selected")
		}
		if err := ctrl.DeleteConversation(id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Conversation deleted."))

	case "/clear":
		ctrl.ClearAll()
		fmt.Fprintln(r.out, SuccessStyle.Render("All conversations deleted."))

	case "/export", "/e":
		if len(rest) == 0 {
			return false, errors.New("usage: /export <md|html|json>")
		}
		format, err := export.ParseFormat(rest[0])
		if err != nil {
			return false, err
		}
		conv := ctrl.Current()
		if conv == nil {
			return false, errors.New("no conversation selected")
		}
		path, err := export.ToFile(conv, format, r.exportDir)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Exported to"), path)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (r *chatREPL) printProviders() {
	active := r.app.Controller.Provider()
	for _, p := range provider.All() {
		marker := "  "
		if p == active {
			marker = "* "
		}
		fmt.Fprintf(r.out, "%s%-10s %s\n", marker, p, DimStyle.Render(p.DisplayName()))
	}
}
