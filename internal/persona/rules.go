// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"regexp"
	"strings"
)

// =============================================================================
// RULE TYPE
// =============================================================================

// Rule is one step of the rewrite chain. Exactly one of Replace or Func is
// used: Func wins when set.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp

	// Replace is a regexp replacement template (${1} style).
	Replace string

	// Func computes the replacement from the whole match.
	Func func(match string) string
}

// Apply runs the rule over text.
func (r Rule) Apply(text string) string {
	if r.Func != nil {
		return r.Pattern.ReplaceAllStringFunc(text, r.Func)
	}
	return r.Pattern.ReplaceAllString(text, r.Replace)
}

// =============================================================================
// SHARED PATTERNS
// =============================================================================

const (
	brandNames  = `ChatGPT|Claude|GPT|Llama|Mistral|Mixtral|Gemma|Anthropic|OpenAI|Groq|Bard|PaLM|Gemini|Copilot`
	vendorNames = `OpenAI|Anthropic|Meta|Google|Together|Mistral|Microsoft|Cohere`

	// apostrophe accepts the ASCII and typographic forms models emit.
	apostrophe = `(?:'|’)`
)

var (
	brandPattern  = regexp.MustCompile(`(?i)\b(?:` + brandNames + `)(?:\d|\b)`)
	vendorPattern = regexp.MustCompile(`(?i)\b(?:` + vendorNames + `)\b`)
)

// literal escapes s for use inside a replacement template.
func literal(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// =============================================================================
// IDENTITY RULES
// =============================================================================

// identityRules covers self-identification, creator attribution and brand
// names, in that order.
func identityRules(id Identity) []Rule {
	name := literal(id.Name)
	org := literal(id.Organization)

	return []Rule{
		{
			Name:    "self-introduction",
			Pattern: regexp.MustCompile(`(?i)\bI` + apostrophe + `?m an? (?:AI|artificial intelligence|language model|LLM|chatbot|assistant).+?(?:\.|$)`),
			Replace: "I'm " + name + ", your advanced AI assistant.",
		},
		{
			Name:    "self-reference",
			Pattern: regexp.MustCompile(`(?i)\b(?:I am|I` + apostrophe + `m|as an?) (?:an? )?(?:AI language model|AI assistant|assistant|ChatGPT|GPT|Claude|Llama|Mistral|language model|LLM|AI)\b`),
			Replace: "I'm " + name,
		},
		{
			Name:    "given-name",
			Pattern: regexp.MustCompile(`(?i)\b(?:my name is|I am called|I` + apostrophe + `m called|I go by) .+?(\.|,|\n|$)`),
			Replace: "I am " + name + "${1}",
		},
		{
			Name:    "no-name",
			Pattern: regexp.MustCompile(`(?i)\bI don` + apostrophe + `t have a (?:personal name|name|identity)`),
			Replace: "My name is " + name,
		},
		{
			Name:    "creator",
			Pattern: regexp.MustCompile(`(?i)\bI was (?:created|developed|made|trained|designed|built) by (?:` + vendorNames + `)\b`),
			Replace: "I was developed by the " + org + " team",
		},
		{
			Name:    "vendor-designed",
			Pattern: regexp.MustCompile(`(?i)\bI(?:` + apostrophe + `m| am) a (?:Meta|OpenAI|Anthropic|Google|Microsoft)-designed model`),
			Replace: "I'm a " + org + "-designed model",
		},
		{
			Name:    "vendor-possessive",
			Pattern: regexp.MustCompile(`(?i)\bI(?:` + apostrophe + `m| am) (?:Meta|OpenAI|Anthropic|Google|Microsoft)` + apostrophe + `s\b`),
			Replace: "I'm " + org + "'s",
		},
		{
			// A version glued to the brand stays attached, so "GPT4o"
			// becomes "<name>4o". Otherwise the brand must end a word.
			Name:    "brand",
			Pattern: regexp.MustCompile(`(?i)\b(?:` + brandNames + `)(\d[\w.]*|\b)`),
			Replace: name + "${1}",
		},
		{
			Name:    "unknown-term",
			Pattern: regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(id.Name) + `" isn` + apostrophe + `t a well-known term or reference`),
			Replace: "I am " + name + ", your advanced AI assistant",
		},
		{
			Name:    "from-vendor",
			Pattern: regexp.MustCompile(`(?i)\bfrom (?:OpenAI|Meta|Anthropic|Google|Microsoft)\b`),
			Replace: "from " + org,
		},
		{
			Name:    "powered-by",
			Pattern: regexp.MustCompile(`(?i)\b(?:trained on|powered by)\b`),
			Replace: "created by " + org + " using",
		},
		{
			Name:    "adapted-by",
			Pattern: regexp.MustCompile(`(?i)\b(adapt|design)ed (?:by|to|for) (?:Meta|OpenAI|Anthropic|Google|Mistral|Together)\b`),
			Replace: "${1}ed by " + org,
		},
	}
}
