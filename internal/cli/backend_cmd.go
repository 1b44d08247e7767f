// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/toughchat/tough/internal/backend"
)

// =============================================================================
// AUTH
// =============================================================================

// HandleAuth signs in to the backend with Google: it prints the sign-in
// URL and polls until the backend reports success. "auth status" only
// checks.
func HandleAuth(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if args.Subcommand == "status" {
		ok, err := app.Backend.AuthStatus(ctx)
		if err != nil {
			return err
		}
		if args.JSON {
			return printJSON(map[string]bool{"authenticated": ok})
		}
		if ok {
			fmt.Println(SuccessStyle.Render("Signed in."))
		} else {
			fmt.Println(WarningStyle.Render("Not signed in. Run 'tough auth'."))
		}
		return nil
	}

	authURL, err := app.Backend.GoogleAuthURL(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Open this URL in your browser to sign in:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()
	if !args.Quiet {
		fmt.Println(DimStyle.Render("Waiting for sign-in (Ctrl+C to stop)..."))
	}

	err = app.Backend.WaitForAuth(ctx, backend.AuthPollInterval, backend.AuthPollTimeout)
	switch {
	case err == nil:
		fmt.Println(SuccessStyle.Render("Signed in."))
		return nil
	case errors.Is(err, backend.ErrAuthTimeout):
		return fmt.Errorf("sign-in not completed within %s", backend.AuthPollTimeout)
	default:
		return err
	}
}

// =============================================================================
// TOOLS
// =============================================================================

// prettyJSON indents raw, or returns it unchanged when it is not JSON.
func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// HandleTools lists or runs the backend's MCP tools.
func HandleTools(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args.Subcommand {
	case "", "list", "ls":
		tools, err := app.Backend.ListTools(ctx)
		if err != nil {
			return err
		}
		fmt.Println(prettyJSON(tools))
		return nil

	case "exec", "run":
		if len(args.Raw) < 2 {
			return errors.New("usage: tough tools exec <name> [json-params | -]")
		}
		name := args.Raw[1]
		params := strings.TrimSpace(strings.Join(args.Raw[2:], " "))
		if params == "-" {
			if params, err = readPiped(); err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
		}

		result, err := app.Backend.ExecuteTool(ctx, name, json.RawMessage(params))
		if err != nil {
			return err
		}
		fmt.Println(prettyJSON(result))
		return nil

	default:
		return fmt.Errorf("unknown tools subcommand %q (use list or exec)", args.Subcommand)
	}
}
