// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "3f1c2a84-9d7e-4b11-a2c5-8f0e6d1b9a37", false},
		{"short alphanumeric", "call42", false},
		{"single char", "a", false},
		{"empty", "", true},
		{"leading hyphen", "-abc", true},
		{"uppercase", "ABC-123", true},
		{"flux injection", `x") or (r._field == "token`, true},
		{"embedded quote", `abc"def`, true},
		{"too long", strings.Repeat("a", 65), true},
		{"whitespace", "abc def", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeSessionID(t *testing.T) {
	got, err := SanitizeSessionID("  3F1C2A84-9D7E-4B11-A2C5-8F0E6D1B9A37 ")
	assert.NoError(t, err)
	assert.Equal(t, "3f1c2a84-9d7e-4b11-a2c5-8f0e6d1b9a37", got)

	_, err = SanitizeSessionID(`"; drop()`)
	assert.Error(t, err)
}
