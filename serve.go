package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/events"
	"github.com/pixelpanic/pixel-panic-api/logging"
	"github.com/pixelpanic/pixel-panic-api/router"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

// buildDeps connects the external collaborators selected by cfg. The returned
// cleanup closes everything that was opened.
func buildDeps(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (router.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := config.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		return router.Deps{}, cleanup, err
	}
	closers = append(closers, func() {
		if err := config.CloseDatabase(db); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	})

	deps := router.Deps{Config: cfg, DB: db, Logger: logger}

	switch {
	case cfg.SMSConfigured():
		deps.SMS = services.NewMessageCentralClient(cfg.MessageCentralBaseURL, cfg.MessageCentralCustomerID, cfg.MessageCentralPassword, cfg.SMSCountryCode, logger)
	case cfg.IsProduction():
		cleanup()
		return router.Deps{}, func() {}, errors.New("MESSAGE_CENTRAL_CUSTOMER_ID and MESSAGE_CENTRAL_PASSWORD are required in production")
	default:
		logger.Warn().Msg("SMS provider not configured, login codes are stubbed")
		deps.SMS = services.NewStubSMSProvider(logger)
	}

	if cfg.RedisURL != "" {
		throttle, err := services.NewRedisThrottle(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return router.Deps{}, func() {}, err
		}
		closers = append(closers, func() { _ = throttle.Close() })
		deps.Throttle = throttle
	} else {
		deps.Throttle = services.NewMemoryThrottle()
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	})
	deps.Publisher = publisher

	if cfg.S3Configured() {
		store, err := services.NewS3Service(ctx, services.S3Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSS3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			cleanup()
			return router.Deps{}, func() {}, err
		}
		deps.Store = store
	} else {
		logger.Warn().Msg("S3 bucket not configured, uploads are disabled")
	}

	return deps, cleanup, nil
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.GoEnv)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	engine, err := router.Setup(deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.GoEnv).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
