// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for security-critical
// operations.
//
// Session identifiers arrive on the URL path and end up interpolated
// into Flux queries against the score history bucket. Validating them
// first prevents Flux injection and keeps junk out of query filters.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDPattern matches identifiers the session store hands out:
// UUID-shaped, lowercase hex and hyphens. The length cap leaves room
// for non-UUID identifiers from older stores.
var sessionIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// ValidateSessionID validates a session identifier before it is used
// in a Flux query filter.
//
// Valid identifiers:
//   - 1-64 characters
//   - Lowercase letters a-z and digits 0-9
//   - Hyphens (-) after the first character
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateSessionID(id); err != nil {
//	    return nil, fmt.Errorf("invalid session id: %w", err)
//	}
//	// Safe to interpolate into a Flux filter
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q (must be 1-64 lowercase alphanumeric chars or hyphens)", id)
	}

	return nil
}

// SanitizeSessionID normalizes and validates a session identifier.
// Returns the lowercase identifier if valid, or an error if invalid.
func SanitizeSessionID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateSessionID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
