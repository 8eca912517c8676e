// Command tripweaver runs the travel planning service: an HTTP API that
// turns a free-text trip request into a budget-checked itinerary while
// streaming pipeline progress over SSE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripweaver/tripweaver/ai"
	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/search"
	"github.com/tripweaver/tripweaver/session"
	"github.com/tripweaver/tripweaver/telemetry"
	"github.com/tripweaver/tripweaver/travel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := core.NewConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := core.NewProductionLogger(cfg.Name,
		core.WithLogLevel(cfg.Logging.Level),
		core.WithLogFormat(cfg.Logging.Format),
	)

	var tel core.Telemetry = &core.NoOpTelemetry{}
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewOTelProvider(cfg.Name, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		tel = provider
		logger.Info("Telemetry enabled", map[string]interface{}{"endpoint": cfg.Telemetry.Endpoint})
	}

	sessions, err := buildSessionStore(cfg, logger)
	if err != nil {
		return err
	}

	aiClient := ai.NewOpenAIClient(cfg.AI,
		ai.WithHTTPClient(telemetry.NewTracedHTTPClient(cfg.AI.Timeout)),
		ai.WithLogger(logger),
		ai.WithTelemetry(tel),
	)
	source := search.NewNaverSource(cfg.Search,
		search.WithHTTPClient(telemetry.NewTracedHTTPClient(cfg.Search.Timeout)),
		search.WithLogger(logger),
	)

	orchestrator := travel.NewOrchestrator(
		travel.NewParser(aiClient, logger),
		travel.NewAttractionWorker(aiClient, source, logger),
		travel.NewRestaurantWorker(aiClient, source, logger),
		travel.NewLodgingWorker(aiClient, source, logger),
		travel.NewComposer(aiClient, logger),
		travel.WithLogger(logger),
		travel.WithTelemetry(tel),
	)

	api := newAPI(orchestrator, sessions, logger, cfg.HTTP.IdleWindow)

	mux := http.NewServeMux()
	mux.Handle("/api/travel/plan", telemetry.WrapHandler(http.HandlerFunc(api.handlePlan), "travel.plan"))
	mux.Handle("/api/travel/experts", telemetry.WrapHandler(http.HandlerFunc(api.handleExperts), "travel.experts"))
	mux.HandleFunc("/health", api.handleHealth)

	// No WriteTimeout: plan responses are long-lived event streams, and
	// a server-wide write deadline would cut them off mid-run. Idle
	// streams are closed by the handler's own watchdog instead.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: cfg.HTTP.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", map[string]interface{}{"port": cfg.Port})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	logger.Info("Server stopped", nil)
	return nil
}

// buildSessionStore prefers Redis and falls back to process-local
// memory, which loses history on restart but keeps the service usable
// without infrastructure.
func buildSessionStore(cfg *core.Config, logger core.Logger) (*session.Store, error) {
	if cfg.Redis.URL != "" {
		store, err := session.NewRedisStore(cfg.Redis.URL, cfg.Session, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting session store: %w", err)
		}
		logger.Info("Session store using Redis", nil)
		return store, nil
	}

	logger.Warn("No Redis URL configured, sessions are in-memory only", nil)
	return session.NewStore(core.NewInMemoryStore(), cfg.Session, logger), nil
}
