package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"iacgenius/app/config"
	"iacgenius/app/usecase"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/metrics"
	mongorepo "iacgenius/internal/infrastructure/store/mongodb"
	"iacgenius/internal/infrastructure/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger()
	cfg := config.Load()

	store, opts, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}

	// History is optional; without Mongo the server runs stateless.
	var history repository.HistoryRepository
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer mongoCancel()
		mongoClient, err = mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		if err := mongoClient.Ping(mongoCtx, nil); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		logger.Info("connected to mongo", "uri", cfg.Mongo.URI)
		history = mongorepo.NewMongoHistoryRepo(mongoClient.Database(cfg.Mongo.Database))
	}

	hub := transport.NewEventHub()
	sessions := usecase.NewSessionManager(usecase.SessionDeps{
		Settings: store,
		History:  history,
		Options:  opts,
		Logger:   logger,
		Publish:  hub.Publish,
	})
	settingsSvc := usecase.NewSettingsService(store, opts, logger)
	providerSvc := usecase.NewProviderService(store, opts, logger)

	handler := transport.NewGeneratorHandler(sessions, settingsSvc, providerSvc, history, hub, logger)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Api-Key"}),
	)(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
		metrics.StartMetricsServer(cfg.Metrics.Addr)
	}()

	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	if mongoClient != nil {
		logger.Info("disconnecting mongo")
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Error("mongo disconnect error", "err", err)
		}
	}

	logger.Info("service stopped")
	return nil
}
