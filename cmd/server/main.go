package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkodi/shorturl/internal/config"
	"github.com/darkodi/shorturl/internal/handler"
	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/middleware"
	"github.com/darkodi/shorturl/internal/repository"
	"github.com/darkodi/shorturl/internal/service"
	"github.com/darkodi/shorturl/internal/validator"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	log.Info("starting url-shortener",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	ctx := context.Background()

	log.Info("connecting to store...")
	store, err := repository.Open(ctx, cfg.Store.URI)
	if err != nil {
		log.Error("failed to open store", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", "error", err.Error())
		}
	}()
	log.Info("store connected")

	urlValidator := validator.NewURLValidator().WithMaxLength(cfg.App.MaxURLLength)
	svc := service.NewURLService(store, store, urlValidator)
	h := handler.NewURLHandler(svc, store, log)

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
		middleware.CORS,
	}
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			middleware.RateLimiterConfig{
				Rate:     cfg.RateLimit.Rate,
				Burst:    cfg.RateLimit.Burst,
				Interval: cfg.RateLimit.Interval,
				Cleanup:  cfg.RateLimit.Cleanup,
			},
			log,
		)
		defer rateLimiter.Stop()
		middlewares = append(middlewares, rateLimiter.Middleware())
		log.Info("rate limiter enabled",
			"rate", cfg.RateLimit.Rate,
			"burst", cfg.RateLimit.Burst,
		)
	}

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.Chain(h.SetupRoutes(), middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("Server listening on port %s\n", cfg.Server.Port)
			fmt.Println("  POST /api/shorturl         - Create short URL")
			fmt.Println("  GET  /api/shorturl/{short} - Redirect to original")
			fmt.Println("  GET  /health               - Health check")
		}
		log.Info("server starting", "addr", addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		log.Info("server stopped")
	}
}
