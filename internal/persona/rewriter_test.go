// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// IDENTITY RULE TESTS
// =============================================================================

func TestRewriteIdentity(t *testing.T) {
	rw := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "self introduction",
			in:   "I'm an AI language model.",
			want: "I'm Tough Agent, your advanced AI assistant.",
		},
		{
			name: "self introduction at end of text",
			in:   "Hello! I'm an AI.",
			want: "Hello! I'm Tough Agent, your advanced AI assistant.",
		},
		{
			name: "typographic apostrophe",
			in:   "I’m a chatbot built for you.",
			want: "I'm Tough Agent, your advanced AI assistant.",
		},
		{
			name: "as an AI",
			in:   "As an AI, I cannot browse.",
			want: "I'm Tough Agent, I cannot browse.",
		},
		{
			name: "given name",
			in:   "My name is Claude, nice to meet you.",
			want: "I am Tough Agent, nice to meet you.",
		},
		{
			name: "no name",
			in:   "I don't have a name.",
			want: "My name is Tough Agent.",
		},
		{
			name: "creator",
			in:   "I was created by Google.",
			want: "I was developed by the Tough team.",
		},
		{
			name: "vendor designed",
			in:   "I'm a Meta-designed model.",
			want: "I'm a Tough-designed model.",
		},
		{
			name: "vendor possessive",
			in:   "I'm Google's assistant.",
			want: "I'm Tough's assistant.",
		},
		{
			name: "brand any casing",
			in:   "claude, CLAUDE and Claude",
			want: "Tough Agent, Tough Agent and Tough Agent",
		},
		{
			name: "brand keeps trailing digits",
			in:   "Compared with GPT4 and Llama3.",
			want: "Compared with Tough Agent4 and Tough Agent3.",
		},
		{
			name: "brand with glued version",
			in:   "I run on GPT4o, Llama3b and Claude2x.",
			want: "I run on Tough Agent4o, Tough Agent3b and Tough Agent2x.",
		},
		{
			name: "brand whole word only",
			in:   "Two llamas grazed near the Claudette house.",
			want: "Two llamas grazed near the Claudette house.",
		},
		{
			name: "unknown term",
			in:   `"Claude" isn't a well-known term or reference`,
			want: "I am Tough Agent, your advanced AI assistant",
		},
		{
			name: "from vendor",
			in:   "A model from Microsoft.",
			want: "A model from Tough.",
		},
		{
			name: "powered by",
			in:   "This tool is powered by search.",
			want: "This tool is created by Tough using search.",
		},
		{
			name: "adapted by",
			in:   "Designed for Google workloads.",
			want: "Designed by Tough workloads.",
		},
		{
			name: "plain text untouched",
			in:   "Paris is the capital of France.",
			want: "Paris is the capital of France.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rw.Rewrite(tt.in); got != tt.want {
				t.Errorf("Rewrite(%q)\n got  %q\n want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRewriteRemovesSelfDescription(t *testing.T) {
	got := Default().Rewrite("I'm an AI language model")
	if !strings.Contains(got, "Tough Agent") {
		t.Errorf("Rewrite() = %q, want persona name", got)
	}
	if strings.Contains(got, "AI language model") {
		t.Errorf("Rewrite() = %q, still contains the model self-description", got)
	}
}

// Brand names are replaced before the trailing phrase rules run, so
// "trained by" is left alone once the vendor is gone.
func TestRewriteBrandBeforePhraseRules(t *testing.T) {
	got := Default().Rewrite("OpenAI's GPT-4o model trained by OpenAI")
	want := "Tough Agent's Tough Agent-4o model trained by Tough Agent"
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}
}

func TestRewriteFullReply(t *testing.T) {
	in := "Hello! I'm an AI assistant created by Anthropic. **Key Features:**\n  * Fast\n  * Smart"
	want := "Hello! I'm Tough Agent, your advanced AI assistant. ## Key Features\n* Fast\n* Smart"
	if got := Default().Rewrite(in); got != want {
		t.Errorf("Rewrite()\n got  %q\n want %q", got, want)
	}
}

// =============================================================================
// MARKDOWN RULE TESTS
// =============================================================================

func TestRewriteMarkdown(t *testing.T) {
	rw := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bullets", "  *   item one\n\n\t* item two", "* item one\n\n* item two"},
		{"numbered", "   1.   First\n2. Second", "1. First\n2. Second"},
		{"pros", "**Pros:**\n- fast", "### Pros\n- fast"},
		{"cons", "**Cons:** slow", "### Cons slow"},
		{"section title", "**Key Points:**", "## Key Points"},
		{"pros is case sensitive", "**pros:**", "## pros"},
		{
			"javascript fence",
			"```\nfunction hi() {}\n```",
			"```javascript\nfunction hi() {}\n```",
		},
		{
			"python fence",
			"```\nimport os\n```",
			"```python\nimport os\n```",
		},
		{
			"java fence",
			"```\npublic static void main() {}\n```",
			"```java\npublic static void main() {}\n```",
		},
		{
			"html fence",
			"```\n<div>hi</div>\n```",
			"```html\n<div>hi</div>\n```",
		},
		{
			"css fence",
			"```\n@media screen {}\n```",
			"```css\n@media screen {}\n```",
		},
		{
			"tagged fence untouched",
			"```go\nconst x = 1\n```",
			"```go\nconst x = 1\n```",
		},
		{
			"unknown fence untouched",
			"```\necho hi\n```",
			"```\necho hi\n```",
		},
		{
			"inline span untouched",
			"use ```let x``` here",
			"use ```let x``` here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rw.Rewrite(tt.in); got != tt.want {
				t.Errorf("Rewrite(%q)\n got  %q\n want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

var idempotenceSamples = []string{
	"I'm an AI assistant created by OpenAI.",
	"I am an assistant and I'm a GPT",
	"My name is Claude, and I go by Claude.",
	"I don't have a personal name",
	"I was made by Cohere",
	"I'm a Google-designed model",
	"I am Microsoft's newest model",
	"GPT4 and Claude and gemini",
	"GPT4o, Llama3b and Gemini1.5-pro",
	`"Tough Agent" isn't a well-known term or reference`,
	"a model from Google",
	"trained on data, powered by love",
	"adapted to Google and designed by Meta",
	"  * item\n   3.  three",
	"**Pros:** **Summary:**",
	"```\nlet x = 1\n```",
}

func TestRulesIdempotent(t *testing.T) {
	rw := Default()
	for _, r := range rw.Rules() {
		for _, in := range idempotenceSamples {
			once := r.Apply(in)
			twice := r.Apply(once)
			if once != twice {
				t.Errorf("rule %q not idempotent on %q:\n once  %q\n twice %q", r.Name, in, once, twice)
			}
		}
	}
}

func TestRewriteStable(t *testing.T) {
	rw := Default()
	for _, in := range []string{
		"Claude here. I'm Claude.",
		"Ask ChatGPT or Copilot.",
		"OpenAI's GPT-4o model trained by OpenAI",
	} {
		once := rw.Rewrite(in)
		if twice := rw.Rewrite(once); twice != once {
			t.Errorf("Rewrite not stable for %q:\n once  %q\n twice %q", in, once, twice)
		}
	}
}

func TestRewriteAdversarialInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("I'm an ", 20000),
		strings.Repeat("*", 100000),
		strings.Repeat("**a ", 30000),
		strings.Repeat("```", 30000),
		strings.Repeat("my name is x ", 20000),
		strings.Repeat(" \t", 50000) + "* x",
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rw := Default()
		for _, in := range inputs {
			rw.Rewrite(in)
		}
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("Rewrite did not finish on adversarial input")
	}
}

func TestRewriteDeterministic(t *testing.T) {
	in := "I'm an AI. **Pros:**\n* a\n```\ndef f(): pass\n```"
	a := Default().Rewrite(in)
	b := Default().Rewrite(in)
	if a != b {
		t.Errorf("Rewrite not deterministic: %q vs %q", a, b)
	}
}

// =============================================================================
// API TESTS
// =============================================================================

func TestRulesOrder(t *testing.T) {
	want := []string{
		"self-introduction", "self-reference", "given-name", "no-name",
		"creator", "vendor-designed", "vendor-possessive",
		"brand", "unknown-term", "from-vendor", "powered-by", "adapted-by",
		"bullets", "numbered-list", "pros-cons", "section-title", "code-fence",
	}
	rules := Default().Rules()
	if len(rules) != len(want) {
		t.Fatalf("Rules() returned %d rules, want %d", len(rules), len(want))
	}
	for i, name := range want {
		if rules[i].Name != name {
			t.Errorf("Rules()[%d] = %q, want %q", i, rules[i].Name, name)
		}
	}
}

func TestApplyRule(t *testing.T) {
	rw := Default()

	got, ok := rw.ApplyRule("brand", "I'm an AI called Claude")
	if !ok {
		t.Fatal("ApplyRule(brand) not found")
	}
	if got != "I'm an AI called Tough Agent" {
		t.Errorf("ApplyRule(brand) = %q", got)
	}

	got, ok = rw.ApplyRule("missing", "text")
	if ok || got != "text" {
		t.Errorf("ApplyRule(missing) = %q, %v", got, ok)
	}
}

func TestCustomIdentity(t *testing.T) {
	rw := New(Identity{Name: "Nova $1", Organization: "Acme"})

	if got := rw.Rewrite("Ask Claude."); got != "Ask Nova $1." {
		t.Errorf("Rewrite() = %q, replacement must be literal", got)
	}
	if got := rw.Rewrite("I was built by OpenAI"); got != "I was developed by the Acme team" {
		t.Errorf("Rewrite() = %q", got)
	}
}

func TestNewFillsBlankIdentity(t *testing.T) {
	rw := New(Identity{})
	if rw.Identity() != DefaultIdentity() {
		t.Errorf("Identity() = %+v, want default", rw.Identity())
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := DefaultIdentity().Validate(); err != nil {
		t.Errorf("DefaultIdentity().Validate() = %v", err)
	}
	if err := (Identity{Name: " ", Organization: "x"}).Validate(); !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("Validate() = %v, want ErrEmptyIdentity", err)
	}
	if err := (Identity{Name: "Claude Helper", Organization: "x"}).Validate(); !errors.Is(err, ErrIdentityCollides) {
		t.Errorf("Validate() = %v, want ErrIdentityCollides", err)
	}
	if err := (Identity{Name: "Helper", Organization: "Google"}).Validate(); !errors.Is(err, ErrIdentityCollides) {
		t.Errorf("Validate() = %v, want ErrIdentityCollides", err)
	}
}
