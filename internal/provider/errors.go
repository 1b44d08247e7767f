// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAPI matches any *APIError via errors.Is.
var ErrAPI = errors.New("provider API error")

// APIError is a non-success HTTP response from a provider.
type APIError struct {
	Provider Provider
	Status   int
	// Message is the provider's error text, or "API error: <status>" when
	// the body carried none.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is allows errors.Is(err, ErrAPI).
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// RateLimited reports whether the provider throttled the request.
func (e *APIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// ErrorFromResponse builds an APIError from a non-success status and body.
// The message comes from a string "error" field or from "error.message";
// anything else falls back to the generic status text.
func ErrorFromResponse(p Provider, status int, body []byte) *APIError {
	return &APIError{Provider: p, Status: status, Message: extractErrorMessage(status, body)}
}

func extractErrorMessage(status int, body []byte) string {
	if root, ok := parseJSON(body); ok {
		if v, ok := dig(root, "error"); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
		if v, ok := dig(root, "error", "message"); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("API error: %d", status)
}
