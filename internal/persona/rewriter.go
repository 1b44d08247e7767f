// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

// Rewriter applies the persona rule chain. It holds no mutable state and is
// safe for concurrent use.
type Rewriter struct {
	identity Identity
	rules    []Rule
}

// New builds the rule chain for id. Blank fields fall back to the default
// persona.
func New(id Identity) *Rewriter {
	id = id.orDefault()
	rules := identityRules(id)
	rules = append(rules, markdownRules()...)
	return &Rewriter{identity: id, rules: rules}
}

// Default returns a Rewriter for DefaultIdentity.
func Default() *Rewriter {
	return New(DefaultIdentity())
}

// Identity returns the persona this Rewriter substitutes.
func (rw *Rewriter) Identity() Identity {
	return rw.identity
}

// Rules returns the ordered rule chain.
func (rw *Rewriter) Rules() []Rule {
	out := make([]Rule, len(rw.rules))
	copy(out, rw.rules)
	return out
}

// Rule returns the named rule.
func (rw *Rewriter) Rule(name string) (Rule, bool) {
	for _, r := range rw.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// ApplyRule runs only the named rule over text. It reports false, and
// returns text unchanged, when no rule has that name.
func (rw *Rewriter) ApplyRule(name, text string) (string, bool) {
	r, ok := rw.Rule(name)
	if !ok {
		return text, false
	}
	return r.Apply(text), true
}

// Rewrite runs every rule in order.
func (rw *Rewriter) Rewrite(text string) string {
	for _, r := range rw.rules {
		text = r.Apply(text)
	}
	return text
}
