// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains validated request bodies for the analyzer HTTP surface.

package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Input Size Limits
// =============================================================================

const (
	// MaxFragmentBytes is the maximum size of a single transcript fragment.
	// Committed STT fragments are sentence-sized; anything near this limit
	// is a misbehaving collaborator, not speech.
	MaxFragmentBytes = 8 * 1024 // 8KB

	// MaxSpeakerBytes bounds the speaker label on a fragment.
	MaxSpeakerBytes = 64
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// reqValidate is the validator instance for analyzer request bodies.
// Initialized in init() with custom validators.
var reqValidate *validator.Validate

func init() {
	reqValidate = validator.New()
	_ = reqValidate.RegisterValidation("maxbytes", validateFragmentBytes)
	_ = reqValidate.RegisterValidation("speakerbytes", validateSpeakerBytes)
}

// validateFragmentBytes enforces MaxFragmentBytes on string fields. Checks
// byte length, not rune count, to bound memory rather than characters.
func validateFragmentBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxFragmentBytes
}

// validateSpeakerBytes enforces MaxSpeakerBytes on speaker labels.
func validateSpeakerBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxSpeakerBytes
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// CreateSessionRequest is the session start marker. All fields are optional;
// weights follow the documented defaults when absent.
type CreateSessionRequest struct {
	// Label is a free-form operator note shown on the dashboard.
	Label string `json:"label,omitempty" validate:"max=256"`

	// Weights is an optional ordered override list. Unknown pillar ids are
	// ignored; absent pillars keep their defaults.
	Weights []WeightOverride `json:"weights,omitempty" validate:"dive"`
}

// Validate checks the request against its declared constraints.
func (r *CreateSessionRequest) Validate() error {
	if err := reqValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid session request: %w", err)
	}
	return nil
}

// =============================================================================
// Fragment Delivery
// =============================================================================

// FragmentRequest is one committed transcript fragment from the
// speech-to-text collaborator.
type FragmentRequest struct {
	// Text is the committed transcript text. Whitespace-only fragments are
	// rejected downstream by the ingestion throttle, not here; validation
	// only enforces shape and size.
	Text string `json:"text" validate:"required,maxbytes"`

	// Speaker identifies the conversation party ("prospect", "agent").
	Speaker string `json:"speaker,omitempty" validate:"speakerbytes"`
}

// Validate checks the request against its declared constraints.
func (r *FragmentRequest) Validate() error {
	if err := reqValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid fragment: %w", err)
	}
	return nil
}

// WindowText returns the fragment as it enters the transcript window. A
// tagged fragment keeps its party attribution inline ("prospect: I need to
// sell") so the scoring tasks can tell the prospect's words from the
// agent's; an untagged fragment passes through unchanged.
func (r *FragmentRequest) WindowText() string {
	if r.Speaker == "" {
		return r.Text
	}
	return r.Speaker + ": " + r.Text
}

// =============================================================================
// Weight Updates
// =============================================================================

// UpdateWeightsRequest replaces a session's weight overrides mid-call.
// The new configuration applies from the next cycle.
type UpdateWeightsRequest struct {
	Weights []WeightOverride `json:"weights" validate:"required,dive"`
}

// Validate checks the request against its declared constraints.
func (r *UpdateWeightsRequest) Validate() error {
	if err := reqValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid weights request: %w", err)
	}
	return nil
}
