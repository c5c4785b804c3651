package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intan/internal/config"
	"intan/internal/handlers"
	"intan/internal/logging"
	"intan/internal/repository"
	"intan/internal/security"
	"intan/internal/service"
	"intan/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage (memory, sqlite, postgres, mysql, redis or unavailable)
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	logger.WithField("type", cfg.StorageType).Info("Storage ready")

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize email service: %v", err)
	}

	repo := repository.NewProgressRepository(store)
	progressService := service.NewProgressService(repo, emailService, logger)

	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	tokens := security.NewTokenManager(secret, cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(secret)
	limiter := security.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()

	trustedProxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatalf("Failed to parse TRUSTED_PROXIES: %v", err)
	}

	// Setup routes
	mux := http.NewServeMux()
	middleware := handlers.NewMiddleware(tokens, csrf, limiter, trustedProxies, logger)
	handlers.NewAPIHandler(progressService, tokens, csrf, logger).RegisterRoutes(mux, middleware)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(logger, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Server shutting down...")
	case err := <-errCh:
		logger.Errorf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
		os.Exit(1)
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
