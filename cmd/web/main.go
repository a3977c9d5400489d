package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/fedbrackets/internal/config"
	"github.com/AdamBeresnev/fedbrackets/internal/db"
	"github.com/AdamBeresnev/fedbrackets/internal/metrics"
	"github.com/AdamBeresnev/fedbrackets/internal/middleware"
	"github.com/AdamBeresnev/fedbrackets/internal/service"
	"github.com/AdamBeresnev/fedbrackets/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
)

type application struct {
	events   *service.EventService
	brackets *service.BracketService
	matches  *service.MatchService
	limiter  *middleware.IPRateLimiter
	registry *prometheus.Registry
	origins  []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)
	tracer := otel.Tracer("fedbrackets")

	eventStore := store.NewEventStore(database)
	matchStore := store.NewMatchStore(database)

	app := &application{
		events:   service.NewEventService(database, eventStore, logger),
		brackets: service.NewBracketService(database, eventStore, matchStore, logger, tracer, recorder),
		matches:  service.NewMatchService(database, eventStore, matchStore, logger, tracer, recorder),
		limiter:  middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		registry: registry,
		origins:  cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
