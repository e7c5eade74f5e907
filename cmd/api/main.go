package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadpnp/crm-import/internal/bootstrap"
	"github.com/mohammadpnp/crm-import/internal/config"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		logging.New("info", "text", os.Stderr).WithError(err).Fatal("invalid configuration")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start application")
	}
	defer a.Close()

	server := bootstrap.NewHTTPServer(a)
	go func() {
		logger.WithField("port", cfg.Port).Info("http server listening")
		if err := server.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
