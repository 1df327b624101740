// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging configures the process-wide slog output for the analyzer.
//
// The serve path installs the returned logger as the slog default; every
// package below it logs through plain slog calls and never sees this
// package. Output goes to stderr, as text for a human watching the process
// or as JSON for a collector. Setting LogDir mirrors the same stream into a
// dated file for post-call review.
//
//	logger, err := logging.New(logging.Config{
//	    Level:   slog.LevelInfo,
//	    Service: "analyzer",
//	    JSON:    true,
//	    LogDir:  os.Getenv("COPILOT_LOG_DIR"),
//	})
//	if err != nil { ... }
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// This package does NOT redact sensitive data. Call sites must keep
// transcript text, tokens, and secrets out of log attributes.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config selects the output shape. The zero value logs text at info level to
// stderr with no file mirror.
type Config struct {
	// Level is the minimum level emitted. Use ParseLevel to derive it from
	// an environment variable.
	Level slog.Level

	// Service is attached to every record as the "service" attribute and
	// names the mirror file. Defaults to "copilot".
	Service string

	// JSON switches the stream from human-readable text to one JSON object
	// per line.
	JSON bool

	// LogDir, when non-empty, mirrors the stream into
	// <LogDir>/<service>_<date>.log. A leading ~ expands to the home
	// directory. The file receives the same format as the console.
	LogDir string
}

// Logger owns the configured slog handler and the mirror file, if any.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New builds a logger from cfg. It fails only when the mirror file cannot be
// created; console-only configurations cannot fail.
func New(cfg Config) (*Logger, error) {
	if cfg.Service == "" {
		cfg.Service = "copilot"
	}

	var out io.Writer = os.Stderr
	var file *os.File
	if cfg.LogDir != "" {
		dir, err := expandPath(cfg.LogDir)
		if err != nil {
			return nil, fmt.Errorf("resolving log directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", cfg.Service, time.Now().Format("2006-01-02"))
		file, err = os.OpenFile(filepath.Join(dir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{
		slog: slog.New(handler).With("service", cfg.Service),
		file: file,
	}, nil
}

// Slog returns the underlying slog.Logger, suitable for slog.SetDefault.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Close releases the mirror file. Safe to call on a console-only logger and
// safe to call twice.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	return f.Close()
}

// ParseLevel maps a level name from configuration onto a slog.Level. The
// empty string means info. An unrecognized name returns info and an error so
// the caller can warn once logging is up rather than die over a typo.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// expandPath resolves a leading ~ against the home directory.
func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
