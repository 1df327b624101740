// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the copilot CLI.
package ux

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

// Semantic palette. Readiness levels follow traffic-light conventions:
// a hot lead is a green light to move toward the close, not a hazard.
var (
	ColorSuccess = lipgloss.Color("#2ECC71") // green
	ColorWarning = lipgloss.Color("#F4D03F") // gold
	ColorError   = lipgloss.Color("#E74C3C") // red
	ColorCool    = lipgloss.Color("#5DADE2") // steel blue
	ColorMuted   = lipgloss.Color("#7F8C8D") // slate
	ColorAccent  = lipgloss.Color("#AF7AC5") // violet, incoherence flags
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Accent    lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Accent:    lipgloss.NewStyle().Foreground(ColorAccent),
	Highlight: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1),
}

var levelStyles = map[string]lipgloss.Style{
	"hot":   lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
	"warm":  lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
	"cool":  lipgloss.NewStyle().Foreground(ColorCool).Bold(true),
	"no_go": lipgloss.NewStyle().Foreground(ColorError).Bold(true),
}

// plain disables styling and animation, for piped output and scripts.
var plain atomic.Bool

// SetPlain switches the package into unstyled line-oriented output.
func SetPlain(v bool) {
	plain.Store(v)
}

// Plain reports whether unstyled output is active.
func Plain() bool {
	return plain.Load()
}

// Icon provides status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its semantic styling.
func (i Icon) Render() string {
	if Plain() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// RenderLevel returns a readiness level styled by its band. Unknown
// levels render unstyled rather than failing.
func RenderLevel(level string) string {
	if Plain() {
		return level
	}
	style, ok := levelStyles[level]
	if !ok {
		return level
	}
	return style.Render(level)
}

// Title prints a styled section title.
func Title(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with a checkmark.
func Success(text string) {
	if Plain() {
		fmt.Printf("OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), text)
}

// Warning prints a warning message.
func Warning(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message.
func Error(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Muted prints secondary text.
func Muted(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// ScoreBar renders a composite score as a filled bar scaled to max.
// A zero or negative max yields an empty bar rather than a panic.
func ScoreBar(score, max float64, width int) string {
	if Plain() {
		return fmt.Sprintf("%.1f/%.1f", score, max)
	}
	var pct float64
	if max > 0 {
		pct = score / max
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	bar := Styles.Success.Render(repeatChar('█', filled)) +
		Styles.Muted.Render(repeatChar('░', width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
