// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderLevelPlainMode(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	assert.Equal(t, "hot", RenderLevel("hot"))
	assert.Equal(t, "no_go", RenderLevel("no_go"))
}

func TestRenderLevelUnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "mystery", RenderLevel("mystery"))
}

func TestIconRenderPlainMode(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	assert.Equal(t, "✓", IconSuccess.Render())
	assert.Equal(t, "✗", IconError.Render())
}

func TestScoreBarPlainMode(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	assert.Equal(t, "72.5/100.0", ScoreBar(72.5, 100, 20))
}

func TestScoreBarClampsAndScales(t *testing.T) {
	// Half-filled bar at 50%.
	bar := ScoreBar(50, 100, 10)
	assert.Contains(t, bar, " 50%")
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	// Out-of-range inputs clamp instead of panicking.
	assert.Contains(t, ScoreBar(150, 100, 10), "100%")
	assert.Contains(t, ScoreBar(-20, 100, 10), "  0%")
	assert.Contains(t, ScoreBar(42, 0, 10), "  0%")
}

func TestRepeatChar(t *testing.T) {
	assert.Equal(t, "███", repeatChar('█', 3))
	assert.Equal(t, "", repeatChar('█', 0))
	assert.Equal(t, "", repeatChar('█', -2))
}
