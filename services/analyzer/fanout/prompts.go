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
	"fmt"
	"strings"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// Each scoring task receives only the slice of context it needs. Cheaper
// tasks (triggers, objections) look at recent speech; pillar scoring and
// question coverage read the whole accumulated window.

// tailWindow returns the last max bytes of window, cut at a word boundary.
func tailWindow(window string, max int) string {
	if len(window) <= max {
		return window
	}
	cut := len(window) - max
	if idx := strings.IndexByte(window[cut:], ' '); idx >= 0 {
		cut += idx + 1
	}
	return window[cut:]
}

// pillarPrompt asks for raw 1-10 scores for one pillar's indicators only.
// The rubric slice is inlined so the task needs no other context.
func pillarPrompt(p datatypes.Pillar, window string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score the PROSPECT in this sales call transcript on the %q dimension.\n", p.Name)
	sb.WriteString("For each indicator below, give a score from 1 (absent) to 10 (strongly present), based only on what was actually said.\n")
	sb.WriteString("Omit an indicator entirely if the transcript gives no evidence either way. Never guess a middle value.\n\nIndicators:\n")
	for id := p.First; id <= p.Last; id++ {
		ind, _ := datatypes.IndicatorByID(id)
		fmt.Fprintf(&sb, "  %d: %s\n", id, ind.Label)
	}
	fmt.Fprintf(&sb, "\nTranscript:\n%s\n\n", window)
	fmt.Fprintf(&sb, "Respond with one JSON object mapping indicator id to score, e.g. {\"%d\": 7}. Nothing else.\n", p.First)
	return sb.String()
}

func triggersPrompt(window string) string {
	return fmt.Sprintf(`Identify rhetorical "hot" triggers the PROSPECT just voiced in this sales call: moments of fear, hope, loss, pride, or urgency that a skilled agent should respond to.

Transcript (most recent speech):
%s

Respond with a JSON array, each element {"name": short trigger name, "evidence": verbatim quote from the transcript, "score": 1-10 intensity}. Use [] if there are none. Nothing else.
`, window)
}

func objectionsPrompt(window string) string {
	return fmt.Sprintf(`Extract the objections the PROSPECT has raised in this sales call. An objection is a stated reason not to proceed (price, timing, trust, needing someone else, wanting alternatives).

Transcript (most recent speech):
%s

Respond with a JSON array, each element {"text": the objection in one sentence, "evidence": verbatim quote, "score": 1-10 strength}. Use [] if there are none. Nothing else.
`, window)
}

func questionsPrompt(window string) string {
	return fmt.Sprintf(`The agent's discovery playbook needs answers to these questions:
  1. What exactly is the prospect's hardship and how long has it lasted?
  2. What hard deadline is the prospect facing?
  3. What are the prospect's actual numbers (owed, equity, income)?
  4. Who besides the prospect is involved in the decision?
  5. What has the prospect already tried?
  6. What does the prospect want to happen next?

Transcript:
%s

For each question, decide whether the conversation so far has answered it. Respond with a JSON array, each element {"question": the question text, "covered": true or false, "evidence": verbatim quote if covered, else ""}. Nothing else.
`, window)
}

func hintsPrompt(window string) string {
	return fmt.Sprintf(`Look for one specific contradiction pattern in this sales call: the PROSPECT claims decision authority ("it's my call", "I decide") and later reveals they must defer to someone else ("I need to ask...", "let me check with...").

Transcript:
%s

If the pattern is present, respond with a JSON array containing one element {"rule_id": "authority_retraction", "evidence": the two quotes joined by " ... ", "confidence": 0.0-1.0}. If not present, respond with []. Nothing else.
`, window)
}

// Dependent enrichment prompts operate on already-detected objections and
// run only when detection returned at least one.

func numberedObjections(objs []datatypes.Objection) string {
	var sb strings.Builder
	for i, o := range objs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, o.Text)
	}
	return sb.String()
}

func fearsPrompt(objs []datatypes.Objection) string {
	return fmt.Sprintf(`For each objection below, name the underlying fear driving it in at most one sentence.

Objections:
%s
Respond with a JSON array of strings, one per objection, in order. Nothing else.
`, numberedObjections(objs))
}

func reframesPrompt(objs []datatypes.Objection) string {
	return fmt.Sprintf(`For each objection below, write a one-sentence reframe that recasts the concern in a constructive light without dismissing it.

Objections:
%s
Respond with a JSON array of strings, one per objection, in order. Nothing else.
`, numberedObjections(objs))
}

func rebuttalsPrompt(objs []datatypes.Objection) string {
	return fmt.Sprintf(`For each objection below, write a two-sentence rebuttal the agent can say out loud: first acknowledge, then answer.

Objections:
%s
Respond with a JSON array of strings, one per objection, in order. Nothing else.
`, numberedObjections(objs))
}
