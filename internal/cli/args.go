// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits a command's own arguments into flags and positionals.
//
// Supported forms:
//
//	--flag value
//	--flag=value
//	--flag          (boolean, when followed by another flag or nothing)
//
// Only the flags named in valueFlags consume the following word; any other
// flag is boolean.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. valueFlags lists the flag names (without
// dashes) that take a value.
func NewArgParser(raw []string, valueFlags ...string) *ArgParser {
	takesValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		takesValue[f] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name, val, hasVal := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch {
		case hasVal:
			p.flags[name] = val
		case takesValue[name] && i+1 < len(raw):
			p.flags[name] = raw[i+1]
			i++
		default:
			p.boolFlags[name] = true
		}
	}
	return p
}

// Subcommand returns the first positional, lowercased.
func (p *ArgParser) Subcommand() string {
	return strings.ToLower(p.Positional(0))
}

// Flag returns a value flag, or "" when absent.
func (p *ArgParser) Flag(name string) string {
	return p.flags[name]
}

// FlagOrDefault returns a value flag or def.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v, ok := p.flags[name]; ok && v != "" {
		return v
	}
	return def
}

// FlagIntOrDefault parses a numeric flag. Missing or malformed values give
// def.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	v, ok := p.flags[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// BoolFlag reports whether a boolean flag was given.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[name]
}

// Positional returns the positional at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns positionals from index onward.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positionals.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// =============================================================================
// HELPERS
// =============================================================================

// parseIndex converts a 1-based list position typed by the user to a
// 0-based index into a list of length n.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if i < 1 || i > n {
		if n == 0 {
			return 0, fmt.Errorf("no conversations")
		}
		return 0, fmt.Errorf("number must be between 1 and %d", n)
	}
	return i - 1, nil
}
