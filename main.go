// tough - terminal chat client for Groq, OpenAI, Anthropic, Together AI and
// Ollama.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/toughchat/tough/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	if args.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", args.Err)
		cli.PrintUsage()
		os.Exit(2)
	}

	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches cmd to its handler.
func run(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdChat:
		return cli.HandleChat(args)
	case cli.CmdAsk:
		return cli.HandleAsk(args)
	case cli.CmdModels:
		return cli.HandleModels(args)
	case cli.CmdProvider:
		return cli.HandleProvider(args)
	case cli.CmdKey:
		return cli.HandleKey(args)
	case cli.CmdURL:
		return cli.HandleURL(args)
	case cli.CmdConversations:
		return cli.HandleConversations(args)
	case cli.CmdSetup:
		return cli.HandleSetup(args)
	case cli.CmdAuth:
		return cli.HandleAuth(args)
	case cli.CmdTools:
		return cli.HandleTools(args)
	case cli.CmdConfig:
		return cli.HandleConfig(args)
	case cli.CmdVersion:
		return cli.HandleVersion(args)
	case cli.CmdHelp:
		return cli.HandleHelp()
	default:
		return cli.HandleUnknown(args)
	}
}
