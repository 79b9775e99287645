// Package main is the entry point for the img2prompt API server.
//
//	@title			img2prompt API
//	@version		1.0
//	@description	Usage quota, subscription and image upload backend for img2prompt.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/img2prompt/service/internal/auth"
	"github.com/img2prompt/service/internal/config"
	"github.com/img2prompt/service/internal/db"
	"github.com/img2prompt/service/internal/logger"
	"github.com/img2prompt/service/internal/retry"
	"github.com/img2prompt/service/internal/storage"
	"github.com/img2prompt/service/internal/upload"
	"github.com/img2prompt/service/internal/usage"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, !cfg.IsProduction())
	if !dotenv {
		log.Info().Msg("no .env file found, reading from environment")
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	applied, err := db.Migrate(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Bool("applied", applied).Msg("database migrations checked")

	oss, err := storage.NewOSSStorage(ctx, cfg.OSS, log)
	if err != nil {
		log.Fatal().Err(err).Msg("oss storage init failed")
	}
	blob, err := storage.NewBlobStorage(ctx, cfg.Storage, retry.Policy{
		MaxAttempts: cfg.Upload.MaxAttempts,
		BaseDelay:   cfg.Upload.BaseDelay,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("blob storage init failed")
	}

	// Wire dependencies: repository → service → handler
	usageRepo := usage.NewRepository(pool)
	usageSvc := usage.NewService(usageRepo, log)
	usageHandler := usage.NewHandler(usageSvc, log)

	uploadHandler := upload.NewHandler(map[string]upload.Uploader{
		upload.ProviderOSS:     oss,
		upload.ProviderStorage: blob,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes(log, auth.NewTokens(cfg.JWTSecret), usageHandler, uploadHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		log.Info().Msgf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
