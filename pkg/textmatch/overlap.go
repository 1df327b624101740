// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textmatch provides normalized word-overlap similarity for short
// evidence strings.
//
// It backs two independent concerns in the analyzer: duplicate suppression
// of trigger/objection evidence, and fuzzy verification that quoted evidence
// actually appears in the source transcript window. It is deliberately a
// standalone pure package so both behaviors can be property-tested without
// any task invocation.
package textmatch

import "strings"

// stopwords are high-frequency function words excluded from the content
// word set. Short transcripts would otherwise match on connective tissue.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "so": {}, "the": {}, "to": {}, "was": {},
	"we": {}, "i": {}, "you": {}, "my": {}, "me": {}, "that": {}, "this": {},
}

// Normalize lowercases s, strips non-alphanumeric runes, and returns the
// set of unique content words (stopwords removed).
func Normalize(s string) map[string]struct{} {
	words := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		w := b.String()
		b.Reset()
		if _, stop := stopwords[w]; !stop {
			words[w] = struct{}{}
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// OverlapRatio returns the fraction of shared content words between a and b,
// measured against the smaller word set: 1.0 means one string's content
// words are entirely contained in the other's, 0.0 means no shared content.
// Two empty-content strings are considered identical (1.0); one empty side
// yields 0.0.
func OverlapRatio(a, b string) float64 {
	wa, wb := Normalize(a), Normalize(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	small, large := wa, wb
	if len(wb) < len(wa) {
		small, large = wb, wa
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// ContainedIn reports whether at least ratio of a's content words appear in
// the (typically much longer) text. Used to verify quoted evidence against
// the source window.
func ContainedIn(a, text string, ratio float64) bool {
	wa := Normalize(a)
	if len(wa) == 0 {
		return false
	}
	wt := Normalize(text)
	shared := 0
	for w := range wa {
		if _, ok := wt[w]; ok {
			shared++
		}
	}
	return float64(shared)/float64(len(wa)) >= ratio
}
