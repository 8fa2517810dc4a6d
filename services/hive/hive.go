// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hive assembles the adaptive verification and consensus engine
// into a runnable HTTP service.
//
// This package wires together the evidence store, the learning bridge,
// the threshold controller, the consensus engine, and the observability
// infrastructure. The worker Executor is the one dependency callers must
// supply; everything else is built from configuration.
package hive

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

	"github.com/AleutianAI/hivemind/services/hive/bridge"
	"github.com/AleutianAI/hivemind/services/hive/config"
	"github.com/AleutianAI/hivemind/services/hive/consensus"
	"github.com/AleutianAI/hivemind/services/hive/observability"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/routes"
	"github.com/AleutianAI/hivemind/services/hive/threshold"
)

// Service defines the contract for the hive service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Bridge returns the learning bridge for embedded (non-HTTP) use.
	Bridge() *bridge.Bridge

	// Engine returns the consensus engine for embedded use.
	Engine() *consensus.Engine

	// Close releases the evidence store and the tracer.
	Close() error
}

// service implements Service for production use.
//
// Thread-safe after construction; all fields are read-only after New()
// returns.
type service struct {
	cfg           config.Config
	router        *gin.Engine
	store         pattern.Store
	bridge        *bridge.Bridge
	engine        *consensus.Engine
	logger        *slog.Logger
	tracerCleanup func(context.Context)
}

// New creates a hive Service from configuration.
//
// # Description
//
// New initializes all service components:
//  1. Opens the badger evidence store (or an in-memory one)
//  2. Builds the threshold value, window, and controller
//  3. Builds the learning bridge and the consensus engine
//  4. Initializes Prometheus metrics and, when enabled, OTel tracing
//  5. Sets up HTTP routes
//
// # Inputs
//
//	cfg - Service configuration, typically from config.Load.
//	executor - Runs consensus workers. Must not be nil.
//	logger - Optional logger; slog.Default() when nil.
//
// # Outputs
//
//	Service - Ready-to-run hive service.
//	error - Non-nil if initialization fails.
func New(cfg config.Config, executor consensus.Executor, logger *slog.Logger) (Service, error) {
	if executor == nil {
		return nil, fmt.Errorf("consensus executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{cfg: cfg, logger: logger}

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open evidence store: %w", err)
	}
	s.store = store

	value, err := threshold.NewValue(cfg.Threshold.Initial, cfg.Threshold.Min, cfg.Threshold.Max)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build threshold: %w", err)
	}
	controller := threshold.NewController(
		value,
		threshold.NewWindow(cfg.Threshold.WindowSize),
		threshold.Params{
			RaiseStep:     cfg.Threshold.RaiseStep,
			LowerStep:     cfg.Threshold.LowerStep,
			RaisePassRate: cfg.Threshold.RaisePassRate,
			RaiseScore:    cfg.Threshold.RaiseScore,
			LowerPassRate: cfg.Threshold.LowerPassRate,
		},
		logger,
	)

	metrics := observability.InitMetrics()
	metrics.ThresholdValue.Set(value.Load())

	s.bridge = bridge.New(store, controller,
		bridge.WithLogger(logger),
		bridge.WithMetrics(metrics),
		bridge.WithSkipConfidence(cfg.Checks.SkipConfidence),
	)
	s.engine = consensus.NewEngine(executor,
		consensus.Config{
			Quorum:      cfg.Consensus.Quorum,
			Deadline:    cfg.Consensus.Deadline,
			MaxParallel: cfg.Consensus.MaxParallel,
		},
		consensus.WithRecorder(s.bridge),
		consensus.WithMetrics(metrics),
		consensus.WithLogger(logger),
	)

	if cfg.Server.OtelEnabled {
		cleanup, err := initTracer(cfg.Server.OtelEndpoint)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("Starting hive server", "port", s.cfg.Server.Port)
	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Bridge returns the learning bridge for embedded use.
func (s *service) Bridge() *bridge.Bridge {
	return s.bridge
}

// Engine returns the consensus engine for embedded use.
func (s *service) Engine() *consensus.Engine {
	return s.engine
}

// Close releases the evidence store and the tracer. Safe to call after
// Run returns; Run calls it on exit.
func (s *service) Close() error {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
	if s.store != nil {
		err := s.store.Close()
		s.store = nil
		return err
	}
	return nil
}

func openStore(cfg config.StoreConfig, logger *slog.Logger) (pattern.Store, error) {
	if cfg.InMemory {
		bc := pattern.InMemoryBadgerConfig()
		bc.Logger = logger
		return pattern.OpenBadger(bc)
	}
	bc := pattern.DefaultBadgerConfig(cfg.Path)
	bc.Logger = logger
	return pattern.OpenBadger(bc)
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("hive-service")))
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

func (s *service) initRouter() {
	s.router = gin.Default()
	if s.cfg.Server.OtelEnabled {
		s.router.Use(otelgin.Middleware("hive-service"))
	}

	routes.SetupRoutes(s.router, s.bridge, s.engine, s.cfg.Consensus.Workers)
}
