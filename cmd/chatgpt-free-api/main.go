package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xsigoking/chatgpt-free-api/internal/app"
	"github.com/xsigoking/chatgpt-free-api/internal/config"
	"github.com/xsigoking/chatgpt-free-api/internal/logger"
	"github.com/xsigoking/chatgpt-free-api/internal/metrics"
)

const shutdownGrace = 10 * time.Second

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	m := metrics.New()
	gateway := app.NewServer(log, cfg, m)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     gateway,
		ReadTimeout: 30 * time.Second,
		// SSE responses stay open indefinitely; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("url", "http://0.0.0.0:"+cfg.Port+"/v1/chat/completions").
			Bool("proxy_configured", cfg.ProxyURL != nil).
			Bool("authorization_configured", cfg.Authorization != "").
			Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	stop()

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("Server stopped")
}
