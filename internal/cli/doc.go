// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the tough command line.
//
// Parse turns os.Args into a Command and an Args value; main dispatches on
// the Command and calls the matching HandleX function. Every handler
// returns an error and leaves printing it to main.
//
// # Commands
//
//	tough                       Interactive chat (same as "tough chat")
//	tough ask "question"        One-shot question
//	tough models [provider]     List models
//	tough provider [name]       Show or set the active provider
//	tough key <provider>        Store an API key (read without echo)
//	tough url <ollama-url>      Set the Ollama endpoint
//	tough conversations [...]   List, show, search, export or delete
//	tough setup                 First-run configuration wizard
//	tough auth                  Sign in to the backend with Google
//	tough tools [list|exec]     Backend MCP tools
//	tough config [get|set|show] Inspect or edit the config file
//	tough version | help
//
// # Wiring
//
// NewApp loads the config file, opens the selected storage backend and
// builds a session.Controller over it. Requests go straight to the
// provider through transport.Client, or through the backend when
// --backend (or [backend] enabled) is set.
package cli
