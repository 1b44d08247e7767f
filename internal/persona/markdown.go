// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"regexp"
	"strings"
)

const fence = "```"

// languageHints maps a fence tag to the substrings that suggest it. Checked
// in order; the first language with a hit wins.
var languageHints = []struct {
	lang  string
	hints []string
}{
	{"javascript", []string{"function", "const ", "let "}},
	{"python", []string{"def ", "import "}},
	{"java", []string{"public ", "class "}},
	{"html", []string{"<html>", "<div>"}},
	{"css", []string{"@media", ".class {"}},
}

// markdownRules run after the identity rules. Line-anchored rules use
// [ \t]* rather than \s* so blank lines between items are kept.
func markdownRules() []Rule {
	return []Rule{
		{
			Name:    "bullets",
			Pattern: regexp.MustCompile(`(?m)^[ \t]*\*[ \t]+(.+)$`),
			Replace: "* ${1}",
		},
		{
			Name:    "numbered-list",
			Pattern: regexp.MustCompile(`(?m)^[ \t]*(\d+)\.[ \t]+(.+)$`),
			Replace: "${1}. ${2}",
		},
		{
			Name:    "pros-cons",
			Pattern: regexp.MustCompile(`\*\*(Pros|Cons|Benefits|Drawbacks|Advantages|Disadvantages):\*\*`),
			Replace: "### ${1}",
		},
		{
			Name:    "section-title",
			Pattern: regexp.MustCompile(`\*\*([\w\s]+):\*\*`),
			Replace: "## ${1}",
		},
		{
			Name:    "code-fence",
			Pattern: regexp.MustCompile("(?s)```(.*?)```"),
			Func:    tagCodeFence,
		},
	}
}

// tagCodeFence adds a language tag to a fenced block that has none. A block
// whose opening line already carries a tag is returned unchanged.
func tagCodeFence(match string) string {
	code := strings.TrimSuffix(strings.TrimPrefix(match, fence), fence)

	nl := strings.IndexByte(code, '\n')
	if nl < 0 {
		// inline span
		return match
	}
	if strings.TrimSpace(code[:nl]) != "" {
		return match
	}

	if lang := sniffLanguage(code); lang != "" {
		return fence + lang + code + fence
	}
	return match
}

// sniffLanguage guesses the language of an untagged code block.
func sniffLanguage(code string) string {
	for _, lh := range languageHints {
		for _, h := range lh.hints {
			if strings.Contains(code, h) {
				return lh.lang
			}
		}
	}
	return ""
}
