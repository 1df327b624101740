// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fanout

import (
	"log/slog"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/textmatch"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

const (
	// dedupeThreshold is the token-overlap ratio above which two
	// detections count as the same finding.
	dedupeThreshold = 0.7

	// verifyThreshold is the minimum overlap between a quoted evidence
	// string and the transcript window for the quote to count as real.
	verifyThreshold = 0.6
)

// dedupeTriggers collapses near-duplicate triggers, keeping the
// higher-scored of each pair.
func dedupeTriggers(triggers []datatypes.Trigger) []datatypes.Trigger {
	out := make([]datatypes.Trigger, 0, len(triggers))
	for _, t := range triggers {
		dup := -1
		for i, kept := range out {
			if textmatch.OverlapRatio(t.Name+" "+t.Evidence, kept.Name+" "+kept.Evidence) > dedupeThreshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, t)
			continue
		}
		if t.Score > out[dup].Score {
			out[dup] = t
		}
	}
	return out
}

// dedupeObjections collapses near-duplicate objections, keeping the
// higher-scored of each pair.
func dedupeObjections(objections []datatypes.Objection) []datatypes.Objection {
	out := make([]datatypes.Objection, 0, len(objections))
	for _, o := range objections {
		dup := -1
		for i, kept := range out {
			if textmatch.OverlapRatio(o.Text+" "+o.Evidence, kept.Text+" "+kept.Evidence) > dedupeThreshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, o)
			continue
		}
		if o.Score > out[dup].Score {
			out[dup] = o
		}
	}
	return out
}

// verifyEvidence flags findings whose quoted evidence does not actually
// appear in the transcript window. Flagged findings are kept so the
// agent can still see them, but the UI renders them as unverified.
func verifyEvidence(merged *datatypes.MergedSignals, window string) {
	for i := range merged.Triggers {
		if !textmatch.ContainedIn(merged.Triggers[i].Evidence, window, verifyThreshold) {
			slog.Debug("Trigger evidence not found in the transcript",
				"name", merged.Triggers[i].Name)
			merged.Triggers[i].Unverified = true
		}
	}
	for i := range merged.Objections {
		if !textmatch.ContainedIn(merged.Objections[i].Evidence, window, verifyThreshold) {
			slog.Debug("Objection evidence not found in the transcript",
				"text", merged.Objections[i].Text)
			merged.Objections[i].Unverified = true
		}
	}
}
