// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/logging"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/ux"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/config"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

var (
	rootCmd = &cobra.Command{
		Use:   "copilot",
		Short: "A CLI to run and exercise the live call-readiness analyzer",
		Long: `Copilot runs the analyzer server that scores live acquisition calls,
and replays saved transcripts against it for rubric tuning.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the analyzer HTTP server",
		Long:  `Reads configuration from COPILOT_* environment variables and starts the analyzer. Blocks until the server exits.`,
		Run:   runServeCommand,
	}

	replayCmd = &cobra.Command{
		Use:   "replay [transcript file]",
		Short: "Replay a saved call transcript against a running analyzer",
		Long: `Creates a session, feeds the transcript line by line as committed
fragments, then prints the final readiness assessment. Lines of the form
"speaker: text" carry the speaker tag; blank lines are skipped.`,
		Args: cobra.ExactArgs(1),
		Run:  runReplayCommand,
	}

	serverURL      string
	apiToken       string
	replayLabel    string
	replayInterval time.Duration
	replayKeep     bool
	replayPlain    bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&serverURL, "server", "http://localhost:12400",
		"Base URL of the running analyzer")
	replayCmd.Flags().StringVar(&apiToken, "token", os.Getenv("COPILOT_API_TOKEN"),
		"Bearer token for the analyzer API")
	replayCmd.Flags().StringVar(&replayLabel, "label", "",
		"Session label, e.g. the property address")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 2*time.Second,
		"Pause between fragments, simulating speech pacing")
	replayCmd.Flags().BoolVar(&replayKeep, "keep", false,
		"Keep the session alive after the replay for dashboard inspection")
	replayCmd.Flags().BoolVar(&replayPlain, "plain", false,
		"Unstyled line-oriented output, for piping")
}

func runServeCommand(cmd *cobra.Command, args []string) {
	// Setup structured logging. COPILOT_LOG_DIR additionally mirrors every
	// entry into a dated file for post-call review.
	level, levelErr := logging.ParseLevel(os.Getenv("COPILOT_LOG_LEVEL"))
	logger, err := logging.New(logging.Config{
		Level:   level,
		Service: "analyzer",
		JSON:    true,
		LogDir:  os.Getenv("COPILOT_LOG_DIR"),
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())
	if levelErr != nil {
		slog.Warn("Ignoring COPILOT_LOG_LEVEL", "error", levelErr)
	}

	settings := config.FromEnv()
	slog.Info("Starting analyzer",
		"addr", settings.ListenAddr,
		"llm_backend", settings.LLMBackend,
	)

	svc, err := analyzer.New(settings)
	if err != nil {
		log.Fatalf("Failed to create the analyzer: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Analyzer error: %v", err)
	}
}

// =============================================================================
// Replay
// =============================================================================

func runReplayCommand(cmd *cobra.Command, args []string) {
	ux.SetPlain(replayPlain)

	file, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Could not open the transcript: %v", err)
	}
	defer file.Close()

	client := &apiClient{base: strings.TrimRight(serverURL, "/"), token: apiToken}

	sessionID, err := client.createSession(replayLabel)
	if err != nil {
		log.Fatalf("Could not create a session: %v", err)
	}
	ux.Success(fmt.Sprintf("Session %s created", sessionID))

	if !replayKeep {
		defer func() {
			if err := client.disposeSession(sessionID); err != nil {
				log.Printf("Could not dispose the session: %v", err)
			}
		}()
	}

	// Subscribe to the live channel so every completed cycle prints as it
	// lands. The final assessment still comes from the snapshot endpoint,
	// which also covers servers without a reachable websocket.
	if conn, err := client.dialLive(sessionID); err != nil {
		ux.Warning(fmt.Sprintf("Live channel unavailable, cycles will not stream: %v", err))
	} else {
		done := make(chan struct{})
		go printLiveUpdates(conn, done)
		defer func() {
			conn.Close()
			<-done
		}()
	}

	sent := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), datatypes.MaxFragmentBytes+1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		speaker, text := splitSpeaker(line)

		if sent > 0 {
			time.Sleep(replayInterval)
		}
		accepted, reason, err := client.submitFragment(sessionID, speaker, text)
		if err != nil {
			log.Fatalf("Fragment rejected with an error: %v", err)
		}
		sent++
		if accepted {
			fmt.Printf("  [%3d] %s %s\n", sent, ux.IconArrow.Render(), truncate(text, 60))
		} else {
			fmt.Printf("  [%3d] %s dropped (%s): %s\n",
				sent, ux.IconWarning.Render(), reason, truncate(text, 60))
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading the transcript: %v", err)
	}
	if sent == 0 {
		log.Fatal("The transcript contains no fragments")
	}

	var state datatypes.AnalysisState
	err = ux.WithSpinner("Waiting for the final scoring cycle", func() error {
		var waitErr error
		state, waitErr = client.waitForAnalysis(sessionID, 30*time.Second)
		return waitErr
	})
	if err != nil {
		log.Fatalf("No analysis was published: %v", err)
	}
	printAssessment(state)

	if replayKeep {
		fmt.Printf("\nSession kept alive: %s\n", sessionID)
	}
}

// splitSpeaker parses an optional "speaker: text" prefix. A colon deep into
// the line is treated as punctuation, not a tag.
func splitSpeaker(line string) (speaker, text string) {
	if idx := strings.Index(line, ":"); idx > 0 && idx <= 20 {
		tag := strings.TrimSpace(line[:idx])
		if tag != "" && !strings.ContainsAny(tag, " \t") {
			return strings.ToLower(tag), strings.TrimSpace(line[idx+1:])
		}
	}
	return "", line
}

// printLiveUpdates prints one line per analysis state pushed over the
// websocket, until the connection closes.
func printLiveUpdates(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		var state datatypes.AnalysisState
		if err := conn.ReadJSON(&state); err != nil {
			return
		}
		line := fmt.Sprintf("cycle %d: %s %.1f/%.1f",
			state.CycleSeq, ux.RenderLevel(string(state.Result.Level)),
			state.Result.Score, state.Result.Max)
		if state.Degraded {
			line += " (degraded)"
		}
		fmt.Printf("        %s %s\n", ux.IconBullet.Render(), line)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func printAssessment(state datatypes.AnalysisState) {
	r := state.Result
	fmt.Println()
	ux.Title(fmt.Sprintf("=== Readiness after cycle %d ===", state.CycleSeq))
	fmt.Printf("Level:  %s", ux.RenderLevel(string(r.Level)))
	if state.Degraded {
		fmt.Printf("  (degraded cycle)")
	}
	fmt.Printf("\nScore:  %.1f / %.1f  %s\n", r.Score, r.Max, ux.ScoreBar(r.Score, r.Max, 20))
	fmt.Printf("%s\n%s\n", r.Interpretation, r.Action)

	fmt.Println("\nPillars:")
	for _, p := range r.Pillars {
		marker := ""
		if p.Defaulted {
			marker = " (no signal)"
		}
		fmt.Printf("  %-18s %4.1f x%.2f%s\n", p.Name, p.Average, p.Weight, marker)
	}

	if len(r.Incoherence) > 0 {
		fmt.Println("\nIncoherence:")
		for _, rule := range r.Incoherence {
			fmt.Printf("  %s (%.0f): %s\n", rule.RuleID, rule.Penalty, rule.Evidence)
		}
	}
	if len(r.Overrides) > 0 {
		fmt.Println("\nClose blockers:")
		for _, o := range r.Overrides {
			fmt.Printf("  %s: %s\n", o.RuleID, o.Reason)
		}
	}
	if len(state.Objections) > 0 {
		fmt.Println("\nObjections:")
		for _, o := range state.Objections {
			fmt.Printf("  - %s\n", o.Text)
			if o.Rebuttal != "" {
				fmt.Printf("    rebuttal: %s\n", o.Rebuttal)
			}
		}
	}
}

// =============================================================================
// HTTP Client
// =============================================================================

type apiClient struct {
	base  string
	token string
}

func (c *apiClient) do(method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("server returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("malformed response body: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// dialLive opens the websocket push channel for a session. The scheme
// swap covers both http->ws and https->wss.
func (c *apiClient) dialLive(id string) (*websocket.Conn, error) {
	wsBase := strings.Replace(c.base, "http", "ws", 1)
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsBase+"/v1/sessions/"+id+"/live", header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (c *apiClient) createSession(label string) (string, error) {
	var body interface{}
	if label != "" {
		body = map[string]string{"label": label}
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if _, err := c.do(http.MethodPost, "/v1/sessions", body, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *apiClient) disposeSession(id string) error {
	_, err := c.do(http.MethodDelete, "/v1/sessions/"+id, nil, nil)
	return err
}

func (c *apiClient) submitFragment(id, speaker, text string) (accepted bool, reason string, err error) {
	body := map[string]string{"text": text}
	if speaker != "" {
		body["speaker"] = speaker
	}
	var resp struct {
		Accepted bool   `json:"accepted"`
		Reason   string `json:"reason"`
	}
	if _, err := c.do(http.MethodPost, "/v1/sessions/"+id+"/fragments", body, &resp); err != nil {
		return false, "", err
	}
	return resp.Accepted, resp.Reason, nil
}

// waitForAnalysis polls until a snapshot is published or the timeout runs
// out. The last fragment may have started a cycle that is still in flight.
func (c *apiClient) waitForAnalysis(id string, timeout time.Duration) (datatypes.AnalysisState, error) {
	deadline := time.Now().Add(timeout)
	for {
		var state datatypes.AnalysisState
		status, err := c.do(http.MethodGet, "/v1/sessions/"+id+"/analysis", nil, &state)
		if err == nil {
			return state, nil
		}
		if status != http.StatusNotFound || time.Now().After(deadline) {
			return datatypes.AnalysisState{}, err
		}
		time.Sleep(500 * time.Millisecond)
	}
}
