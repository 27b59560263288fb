package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/resistance-backend/internal/config"
	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/httpapi"
	"github.com/DoyleJ11/resistance-backend/internal/hub"
	"github.com/DoyleJ11/resistance-backend/internal/lobby"
	"github.com/DoyleJ11/resistance-backend/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type recorder interface {
	lobby.Recorder
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := openRecorder(ctx, cfg, logger.Named("store"))
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	// The hub outlives the request context so finished matches can still be recorded.
	h := hub.NewHub(context.WithoutCancel(ctx), hub.Config{
		Rules:          engine.Rules{HammerAutoApprove: cfg.HammerAutoApprove},
		Recorder:       rec,
		PersistTimeout: cfg.PersistTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{ClientBuffer: cfg.ClientBuffer, Logger: logger}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("hub did not stop in time")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func openRecorder(ctx context.Context, cfg config.Config, log *zap.Logger) (recorder, error) {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, keeping match records in memory")
		return store.NewMemory(), nil
	}
	return store.OpenPostgres(ctx, cfg.DatabaseURL, log)
}

// initLogger builds the zap logger from LOG_LEVEL and LOG_FORMAT.
func initLogger(levelName, format string) (*zap.Logger, error) {
	var level zapcore.Level
	switch levelName {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
