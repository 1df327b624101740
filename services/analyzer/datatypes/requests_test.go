// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentRequestWindowText(t *testing.T) {
	tagged := FragmentRequest{Text: "I need to sell fast", Speaker: "prospect"}
	assert.Equal(t, "prospect: I need to sell fast", tagged.WindowText())

	untagged := FragmentRequest{Text: "I need to sell fast"}
	assert.Equal(t, "I need to sell fast", untagged.WindowText())
}

func TestFragmentRequestValidateSpeakerLength(t *testing.T) {
	ok := FragmentRequest{Text: "hello", Speaker: strings.Repeat("s", MaxSpeakerBytes)}
	assert.NoError(t, ok.Validate())

	long := FragmentRequest{Text: "hello", Speaker: strings.Repeat("s", MaxSpeakerBytes+1)}
	assert.Error(t, long.Validate())
}

func TestFragmentRequestValidateTextBytes(t *testing.T) {
	big := FragmentRequest{Text: strings.Repeat("a", MaxFragmentBytes+1)}
	assert.Error(t, big.Validate())

	empty := FragmentRequest{}
	assert.Error(t, empty.Validate())
}
