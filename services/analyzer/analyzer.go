// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer provides the live call-readiness analysis service.
//
// This package contains the main Service type that coordinates all
// components: HTTP routing, the fragment ingest pipeline, the LLM fan-out
// orchestrator, the session store, score history, and observability
// infrastructure.
//
// # Usage
//
//	svc, err := analyzer.New(config.FromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/extensions"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/config"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/fanout"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/handlers"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/history"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/ingest"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/observability"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/pipeline"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/routes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the analyzer service.
//
// # Description
//
// Service abstracts the analyzer lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - the session store and idle-session sweeper
//   - the fragment ingest throttle and analysis pipeline
//   - the LLM fan-out orchestrator
//   - score history in InfluxDB (optional)
//   - the pillar-weights file watcher (optional)
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	settings config.Settings
	router   *gin.Engine

	store   *session.Store
	sweeper *session.Sweeper
	hub     *handlers.Hub
	sink    *history.Sink
	metrics *observability.AnalysisMetrics

	llmClient     llm.LLMClient
	weightWatcher *config.WeightWatcher
	tracerCleanup func(context.Context)

	// watcherCancel stops the weights-watcher goroutine on cleanup.
	watcherCancel context.CancelFunc
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new analyzer Service with the given settings.
//
// # Description
//
// New initializes all analyzer components:
//  1. Initializes OpenTelemetry tracing (when an OTLP endpoint is set)
//  2. Initializes Prometheus metrics
//  3. Creates the LLM client based on the backend type
//  4. Creates the session store and starts the idle-session sweeper
//  5. Loads the pillar-weights file and starts the hot-reload watcher
//  6. Connects the score-history sink (optional)
//  7. Wires the ingest throttle, fan-out orchestrator, and pipeline
//  8. Sets up HTTP routes
//
// # Inputs
//
//   - settings: Analyzer configuration, normally config.FromEnv().
//
// # Outputs
//
//   - Service: Ready-to-run analyzer service
//   - error: Non-nil if initialization fails
//
// # Limitations
//
//   - LLM client creation may fail if required env vars are missing
//   - History and tracing are optional; their failures are not fatal
func New(settings config.Settings) (Service, error) {
	s := &service{
		settings: settings,
	}

	// Initialize OpenTelemetry tracer (optional)
	if settings.OTLPEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	} else {
		slog.Info("OTLP endpoint not configured, trace export disabled")
	}

	// Initialize Prometheus metrics
	s.metrics = observability.InitMetrics()
	slog.Info("Initialized Prometheus metrics for analysis cycles")

	// Initialize LLM client
	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	// Session store and idle-session sweeper
	s.store = session.NewStore(nil)
	s.sweeper = session.NewSweeper(s.store, session.SweeperConfig{
		Interval: settings.SweepInterval,
		MaxIdle:  settings.SessionMaxIdle,
	})
	if err := s.sweeper.Start(context.Background()); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to start session sweeper: %w", err)
	}

	// Pillar weights file and hot reload (optional)
	if err := s.initWeights(); err != nil {
		slog.Warn("Weights file initialization failed, using built-in defaults",
			"error", err)
		// Not fatal - defaults apply
	}

	// Score history sink (optional, nil without an InfluxDB token)
	sink, err := history.NewSink()
	if err != nil {
		slog.Warn("History sink initialization failed, score history disabled",
			"error", err)
	} else {
		s.sink = sink
	}

	// Ingest throttle, fan-out orchestrator, and the pipeline tying them
	// together
	throttle := ingest.NewThrottle(settings.Throttle, nil)
	orchestrator := fanout.NewOrchestrator(s.llmClient, settings.Fanout)
	s.hub = handlers.NewHub(s.metrics)
	pipe := pipeline.New(throttle, orchestrator, s.hub, s.sink, s.metrics, nil)

	// Setup HTTP router
	s.initRouter(pipe)

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error. Cleanup is
// automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	slog.Info("Starting analyzer server", "addr", s.settings.ListenAddr)
	return s.router.Run(s.settings.ListenAddr)
}

// Router returns the underlying Gin engine for testing. Callers must not
// modify routes after construction.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up an OTLP trace exporter to send spans to the configured collector
// over an insecure gRPC connection, which is appropriate for internal
// networks.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.settings.OTLPEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("analyzer-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient initializes the LLM provider client used by the fan-out
// orchestrator.
//
// # Limitations
//
//   - Only supports: openai, anthropic/claude, ollama, llamacpp
func (s *service) initLLMClient() error {
	var err error

	switch s.settings.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "claude", "anthropic":
		s.llmClient, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) LLM backend")
	case "llamacpp", "local":
		s.llmClient, err = llm.NewLocalLlamaCppClient()
		slog.Info("Using Local Llama.cpp LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama",
			"backend", s.settings.LLMBackend)
		s.llmClient, err = llm.NewOllamaClient()
	}

	return err
}

// initWeights loads the pillar-weights file and starts the hot-reload
// watcher. Reloaded weights apply to sessions created afterwards; live
// sessions keep theirs.
//
// # Limitations
//
//   - Returns nil without a watcher when no weights path is configured
func (s *service) initWeights() error {
	if s.settings.WeightsPath == "" {
		slog.Info("Weights file not configured, using built-in pillar weights")
		return nil
	}

	weights, err := config.LoadWeights(s.settings.WeightsPath)
	if err != nil {
		return fmt.Errorf("failed to load the weights file: %w", err)
	}
	s.store.SetDefaultWeights(weights)
	slog.Info("Loaded pillar weights", "path", s.settings.WeightsPath)

	watcher, err := config.NewWeightWatcher(s.settings.WeightsPath, s.store.SetDefaultWeights)
	if err != nil {
		return fmt.Errorf("failed to create the weights watcher: %w", err)
	}
	s.weightWatcher = watcher

	ctx, cancel := context.WithCancel(context.Background())
	s.watcherCancel = cancel
	go watcher.Start(ctx)

	return nil
}

// initRouter sets up the Gin HTTP router with all routes. Static-token auth
// is used when an API token is configured; otherwise every request passes.
func (s *service) initRouter(pipe *pipeline.Pipeline) {
	var auth extensions.AuthProvider = &extensions.NopAuthProvider{}
	if s.settings.APIToken != "" {
		if provider, err := extensions.NewStaticTokenProvider(s.settings.APIToken); err == nil {
			auth = provider
		} else {
			slog.Warn("Static token provider rejected the configured token, authentication disabled",
				"error", err)
		}
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("analyzer-service"))

	routes.SetupRoutes(s.router, routes.Deps{
		Store:          s.store,
		Pipeline:       pipe,
		Hub:            s.hub,
		Sink:           s.sink,
		Metrics:        s.metrics,
		Auth:           auth,
		RateLimitRPS:   s.settings.RateLimitRPS,
		RateLimitBurst: s.settings.RateLimitBurst,
	})
}

// cleanup releases all resources held by the service. Called when Run()
// exits or on initialization failure.
func (s *service) cleanup() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	if s.watcherCancel != nil {
		s.watcherCancel()
	}
	if s.weightWatcher != nil {
		if err := s.weightWatcher.Stop(); err != nil {
			slog.Warn("Weights watcher stop error", "error", err)
		}
	}

	if s.sink != nil {
		s.sink.Close()
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
