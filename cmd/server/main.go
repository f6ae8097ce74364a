package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/api"
	"chat-relay/internal/app"
	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/jsonstore"
	"chat-relay/internal/repository/postgres"
	"chat-relay/internal/repository/s3store"
	"chat-relay/internal/repository/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logger.Log.WithError(err).Fatal("Server stopped with error")
	}
}

func run() error {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, appConfig.Storage)
	if err != nil {
		return err
	}

	passwords := auth.Passwords{Hash: appConfig.Auth.HashPasswords}
	adminPassword, err := passwords.Prepare(appConfig.Auth.DefaultAdminPassword)
	if err != nil {
		return err
	}

	store := jsonstore.New(backend, jsonstore.Options{
		UsersName:         appConfig.Storage.UsersFile,
		SharesName:        appConfig.Storage.SharesFile,
		ConversationsName: appConfig.Storage.ConversationsFile,
		AdminPassword:     adminPassword,
	})
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	cfg := app.NewConfig(store, appConfig)
	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           api.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.WithFields(logrus.Fields{
			"port":    appConfig.Server.Port,
			"storage": appConfig.Storage.Driver,
			"models":  len(appConfig.Models.GetAvailableModels()),
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info("Server stopped")
	return nil
}

// openBackend picks where the JSON documents live
func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Driver {
	case config.StorageS3:
		return s3store.New(ctx, cfg.S3)
	case config.StoragePostgres:
		return postgres.NewPostgresDB(ctx, cfg.Database)
	default:
		logger.Log.WithField("data_dir", cfg.DataDir).Info("Using file document storage")
		return storage.NewFileBackend(cfg.DataDir)
	}
}
