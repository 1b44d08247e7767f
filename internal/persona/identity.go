// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultName is the persona the assistant presents as.
	DefaultName = "Tough Agent"

	// DefaultOrganization is credited as the persona's creator.
	DefaultOrganization = "Tough"
)

var (
	// ErrEmptyIdentity is returned when the persona name or organization is blank.
	ErrEmptyIdentity = errors.New("persona name and organization must not be empty")

	// ErrIdentityCollides is returned when the persona would itself be
	// rewritten by the chain, which breaks idempotence.
	ErrIdentityCollides = errors.New("persona identity contains a rewritten brand or vendor name")
)

// Identity is the persona substituted into assistant replies.
type Identity struct {
	Name         string `toml:"name" json:"name"`
	Organization string `toml:"organization" json:"organization"`
}

// DefaultIdentity returns the built-in persona.
func DefaultIdentity() Identity {
	return Identity{Name: DefaultName, Organization: DefaultOrganization}
}

// Validate checks that the identity is non-empty and that neither field
// contains a brand or vendor name the rules would rewrite again.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.Name) == "" || strings.TrimSpace(id.Organization) == "" {
		return ErrEmptyIdentity
	}
	for _, field := range []string{id.Name, id.Organization} {
		if brandPattern.MatchString(field) || vendorPattern.MatchString(field) {
			return fmt.Errorf("%w: %q", ErrIdentityCollides, field)
		}
	}
	return nil
}

// orDefault fills blank fields from DefaultIdentity.
func (id Identity) orDefault() Identity {
	def := DefaultIdentity()
	if strings.TrimSpace(id.Name) == "" {
		id.Name = def.Name
	}
	if strings.TrimSpace(id.Organization) == "" {
		id.Organization = def.Organization
	}
	return id
}
