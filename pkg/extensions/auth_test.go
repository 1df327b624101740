// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopAuthProviderAcceptsAnything(t *testing.T) {
	p := &NopAuthProvider{}

	for _, token := range []string{"", "whatever", "Bearer junk"} {
		info, err := p.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "local-user", info.UserID)
		assert.True(t, info.HasRole("admin"))
	}
}

func TestStaticTokenProvider(t *testing.T) {
	p, err := NewStaticTokenProvider("s3cret")
	require.NoError(t, err)

	info, err := p.Validate(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "api-client", info.UserID)
	assert.True(t, info.HasRole("agent"))
	assert.False(t, info.HasRole("admin"))

	_, err = p.Validate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = p.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStaticTokenProviderRejectsEmptyToken(t *testing.T) {
	_, err := NewStaticTokenProvider("")
	assert.Error(t, err)
}
