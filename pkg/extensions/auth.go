// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the pluggable authentication surface of the
// dashboard service. The open source build ships two providers: a no-op
// provider for single-user local use and a static-token provider for
// deployments that front the analyzer with one shared API token.
// Enterprise builds substitute providers that validate against real
// identity systems.
package extensions

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when authentication fails. Provider
// implementations should wrap this error with additional context:
//
//	return nil, fmt.Errorf("token expired: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the user
//
// Optional fields (may be empty):
//   - Email: User's email address
//   - Roles: List of roles the user holds. Common roles: "agent"
//     (takes calls), "supervisor" (tunes weights, views all sessions),
//     "admin".
type AuthInfo struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Open Source Behavior
//
// NopAuthProvider (the default with no token configured) authenticates
// every request as "local-user" with admin privileges, so a single-agent
// local setup needs no auth infrastructure. StaticTokenProvider accepts
// exactly one preshared token.
//
// # Enterprise Implementation
//
// Enterprise versions validate tokens against identity providers (Okta,
// Auth0, Azure AD) and return real user identity information.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's
	// identity. Returns ErrUnauthorized (possibly wrapped) for an
	// invalid token; other errors indicate provider failure.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default authentication provider for open source.
//
// It always returns a valid local user with admin privileges. The token
// is ignored, including the empty string. Thread-safe: no mutable state.
type NopAuthProvider struct{}

// Validate always returns a valid local user with admin privileges.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

// StaticTokenProvider authenticates against one preshared API token.
//
// The comparison is constant-time. Every accepted request is attributed
// to the same "api-client" identity; per-user identity needs a real
// provider. Thread-safe: the token is immutable after construction.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for the given token. An empty
// token is refused; use NopAuthProvider to disable auth explicitly.
func NewStaticTokenProvider(token string) (*StaticTokenProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("static token must not be empty")
	}
	return &StaticTokenProvider{token: token}, nil
}

// Validate accepts exactly the configured token.
func (p *StaticTokenProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) != 1 {
		return nil, ErrUnauthorized
	}
	return &AuthInfo{
		UserID: "api-client",
		Roles:  []string{"agent"},
	}, nil
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticTokenProvider)(nil)
)
