// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import "strings"

// hallucinationPhrases are stock phrases speech-to-text models emit on
// silence or noise. A short fragment dominated by one of these is an
// artifact of the transcription model, not speech, and must never reach the
// scoring window.
var hallucinationPhrases = []string{
	"thank you for watching",
	"thanks for watching",
	"see you in the next video",
	"don't forget to subscribe",
	"subscribe to my channel",
	"transcribed by",
	"[music]",
	"[applause]",
	"[silence]",
	"www.",
}

// maxHallucinationLen bounds the pattern check: a long fragment containing
// one of the phrases is presumed to be genuine speech quoting it.
const maxHallucinationLen = 96

// IsHallucination reports whether a fragment matches a known
// speech-to-text hallucination pattern.
func IsHallucination(fragment string) bool {
	if len(fragment) > maxHallucinationLen {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(fragment))
	for _, p := range hallucinationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
