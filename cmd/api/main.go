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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/ugram-notify/internal/application/auth"
	"github.com/ugram-notify/internal/application/notification"
	"github.com/ugram-notify/internal/config"
	"github.com/ugram-notify/internal/infrastructure/dynamo"
	jwtinfra "github.com/ugram-notify/internal/infrastructure/jwt"
	mongoinfra "github.com/ugram-notify/internal/infrastructure/mongo"
	"github.com/ugram-notify/internal/observability/metrics"
	"github.com/ugram-notify/internal/presence"
	transporthttp "github.com/ugram-notify/internal/transport/http"
	appmiddleware "github.com/ugram-notify/internal/transport/http/middleware"
	"github.com/ugram-notify/internal/transport/ws"
	"golang.org/x/time/rate"
)

func main() {
	log := logrus.New()
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Configuration rejected")
	}
	configureLogger(log, cfg)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	if cfg.LogPrettyPrint {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	accounts, closeStore, err := openAccountStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}
	authSvc := auth.NewService(jwtProvider, accounts, log)

	presenceRegistry := presence.NewRegistry()
	gateway := ws.NewGateway(presenceRegistry, authSvc, ws.Options{
		CookieName:     cfg.TokenCookieName,
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.WSSendBuffer,
		Logger:         log,
		Metrics:        m,
	})
	dispatcher := notification.NewDispatcher(gateway, notification.Options{
		Capacity: cfg.QueueCapacity,
		Overflow: notification.OverflowPolicy(cfg.OverflowPolicy),
		Logger:   log,
		Metrics:  m,
	})

	limiter := appmiddleware.NewRateLimiter(rate.Limit(cfg.WSRateLimit), cfg.WSRateBurst, log)
	defer limiter.Stop()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Gateway:  gateway,
		Metrics:  m,
		Producer: dispatcher,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown; the gateway
	// closes them after the listener stops.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("Notification queue not fully drained")
	}
	if err := gateway.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("Gateway connections not fully closed")
	}
	log.Info("Server stopped")
	return nil
}

// openAccountStore connects the configured account backend and returns it with
// a release function.
func openAccountStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (auth.AccountFinder, func(), error) {
	switch cfg.AccountStore {
	case config.AccountStoreMongo:
		client, err := mongoinfra.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo: %w", err)
		}
		coll := client.Database(cfg.MongoDatabase).Collection(mongoinfra.AccountsCollection)
		release := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				log.WithError(err).Warn("Mongo disconnect failed")
			}
		}
		log.WithField("database", cfg.MongoDatabase).Info("Account store: mongo")
		return mongoinfra.NewAccountRepo(coll), release, nil

	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("dynamo: %w", err)
		}
		if cfg.AppEnv == "development" {
			// Creates the tables on LocalStack if they don't exist.
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		}
		log.WithField("table", cfg.DynamoTables.Accounts).Info("Account store: dynamo")
		return dynamo.NewAccountRepo(client, cfg.DynamoTables.Accounts), func() {}, nil
	}
}
