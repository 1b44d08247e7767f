// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies what main should run.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdModels
	CmdProvider
	CmdKey
	CmdURL
	CmdConversations
	CmdSetup
	CmdAuth
	CmdTools
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdModels:
		return "models"
	case CmdProvider:
		return "provider"
	case CmdKey:
		return "key"
	case CmdURL:
		return "url"
	case CmdConversations:
		return "conversations"
	case CmdSetup:
		return "setup"
	case CmdAuth:
		return "auth"
	case CmdTools:
		return "tools"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// =============================================================================
// ARGS
// =============================================================================

// Args holds everything parsed from the command line.
type Args struct {
	// Global flags
	Provider   string // --provider, -p
	Model      string // --model, -m
	Backend    bool   // --backend[=url]
	BackendURL string
	Store      string // --store file|sqlite|memory
	ConfigPath string // --config
	NoRewrite  bool   // --no-rewrite
	Quiet      bool   // -q, --quiet
	Verbose    bool   // -v, --verbose
	JSON       bool   // --json
	Save       bool   // --save (ask only)

	// Query is the question for "ask".
	Query string

	// Name is the command word as typed, kept for unknown commands.
	Name string

	// Subcommand is the first word after the command, lowercased.
	Subcommand string

	// Raw holds everything after the command word that was not a global
	// flag.
	Raw []string

	// Err is set when a global flag is malformed.
	Err error
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `tough - chat with Groq, OpenAI, Anthropic, Together AI or a local Ollama

USAGE:
  tough [flags] [command] [args]

COMMANDS:
  chat                        Interactive chat (default)
  ask "question"              Ask once and print the answer
  models [provider]           List available models
  provider [name]             Show or set the active provider
  key <provider>              Store an API key (input is hidden)
  url <ollama-url>            Set the Ollama endpoint
  conversations [list]        List saved conversations
  conversations show <n>      Print a conversation
  conversations search <q>    Find conversations by text
  conversations export <n>    Export (--format md|html|json, --dir path)
  conversations delete <n>    Delete a conversation
  conversations clear         Delete all conversations
  setup                       Configure a provider interactively
  auth                        Sign in to the backend with Google
  tools [list]                List backend MCP tools
  tools exec <name> [json]    Run a backend MCP tool
  config show                 Print the effective configuration
  config get <key>            Print one config value
  config set <key> <value>    Change a value in the config file
  version                     Print version information
  help                        Show this help

FLAGS:
  -p, --provider NAME         Use provider (groq, openai, anthropic, together, ollama)
  -m, --model ID              Use model
      --backend[=URL]         Send chats through the tough backend
      --store KIND            Storage backend: file, sqlite or memory
      --config PATH           Config file (default ~/.tough/config.toml)
      --no-rewrite            Show replies exactly as the model sent them
      --save                  Keep the "ask" conversation in history
      --json                  Machine-readable output
  -q, --quiet                 Minimal output
  -v, --verbose               Log HTTP activity to stderr

CHAT COMMANDS:
  /help /provider [p] /model [id] /models /new /list /switch <n>
  /delete [n] /clear /export <md|html|json> /quit

ENVIRONMENT:
  TOUGH_PROVIDER, TOUGH_MODEL, TOUGH_BACKEND_URL, TOUGH_STORE, TOUGH_DATA_DIR,
  OLLAMA_HOST, GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, TOGETHER_API_KEY
`

// PrintUsage writes the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes the version line to stdout.
func PrintVersion() {
	fmt.Printf("tough %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name). Global flags are
// accepted anywhere; anything else is left in Args.Raw for the command.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if args.Err != nil {
		return CmdHelp, args
	}

	if len(remaining) == 0 {
		return CmdChat, args
	}

	args.Name = remaining[0]
	rest := remaining[1:]
	args.Raw = rest
	if len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
	}

	switch strings.ToLower(args.Name) {
	case "chat":
		return CmdChat, args
	case "ask", "a":
		args.Query = strings.TrimSpace(strings.Join(rest, " "))
		return CmdAsk, args
	case "models", "model":
		return CmdModels, args
	case "provider", "providers":
		return CmdProvider, args
	case "key", "keys":
		return CmdKey, args
	case "url":
		return CmdURL, args
	case "conversations", "conversation", "convs", "history":
		return CmdConversations, args
	case "setup", "init":
		return CmdSetup, args
	case "auth", "login":
		return CmdAuth, args
	case "tools", "mcp":
		return CmdTools, args
	case "config":
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags pulls the global flags out of argv. Everything after a
// bare "--" is passed through untouched.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))

	value := func(i *int, name string) string {
		if *i+1 >= len(argv) {
			args.Err = fmt.Errorf("flag %s requires a value", name)
			return ""
		}
		*i++
		return argv[*i]
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		if arg == "--" {
			remaining = append(remaining, argv[i+1:]...)
			break
		}

		name, inline, hasInline := strings.Cut(arg, "=")
		get := func() string {
			if hasInline {
				return inline
			}
			return value(&i, name)
		}

		switch name {
		case "-p", "--provider":
			args.Provider = get()
		case "-m", "--model":
			args.Model = get()
		case "--store":
			args.Store = get()
		case "--config":
			args.ConfigPath = get()
		case "--backend":
			args.Backend = true
			if hasInline {
				args.BackendURL = inline
			}
		case "--no-rewrite":
			args.NoRewrite = true
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--save":
			args.Save = true
		case "-h", "--help":
			remaining = append([]string{"help"}, remaining...)
		case "--version":
			remaining = append([]string{"version"}, remaining...)
		default:
			remaining = append(remaining, arg)
		}

		if args.Err != nil {
			break
		}
	}

	return remaining, args
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(args Args) error {
	if args.JSON {
		return printJSON(map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
		})
	}
	PrintVersion()
	return nil
}

// HandleHelp prints usage.
func HandleHelp() error {
	PrintUsage()
	return nil
}

// HandleUnknown reports a command word Parse did not recognize.
func HandleUnknown(args Args) error {
	return fmt.Errorf("unknown command %q (run 'tough help')", args.Name)
}
