package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rentmoto/rentmoto-backend/api/routes"
	"github.com/rentmoto/rentmoto-backend/internal/auth"
	"github.com/rentmoto/rentmoto-backend/internal/contracts"
	"github.com/rentmoto/rentmoto-backend/internal/notifications"
	"github.com/rentmoto/rentmoto-backend/internal/payments"
	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	"github.com/rentmoto/rentmoto-backend/internal/users"
	"github.com/rentmoto/rentmoto-backend/pkg/config"
	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/migrate"
	"github.com/rentmoto/rentmoto-backend/pkg/pubsub"
	"github.com/rentmoto/rentmoto-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// Pub/Sub is optional: without a project id, notifications stay in-app only
	var publisher *notifications.Publisher
	if cfg.GCP.ProjectID != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err = notifications.NewPublisher(psClient.NotificationPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification publisher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "pubsub disabled: no gcp project configured")
		publisher, _ = notifications.NewPublisher(nil, logg)
	}

	usersRepo := users.NewRepository(dbClient)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       usersRepo,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{Repo: usersRepo, Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	contractsRepo := contracts.NewRepository(dbClient)
	contractsService, err := contracts.NewService(contracts.ServiceParams{
		Repo:   contractsRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contracts service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(dbClient),
		Publisher: publisher,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	rentalsService, err := rentals.NewService(rentals.ServiceParams{
		Repo:      rentals.NewRepository(dbClient),
		Contracts: contractsRepo,
		Notifier:  notificationsService,
		Logger:    logg,
		Rules: rentals.Rules{
			ConfirmationWindow:    cfg.Rental.ConfirmationWindow,
			PaymentDeadlineOffset: cfg.Rental.PaymentDeadlineOffset,
			QRMaxStale:            cfg.QR.MaxStale,
		},
		QRConfig: cfg.QR,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rentals service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient),
		Rentals:  rentalsService,
		Deduper:  redisClient,
		Logger:   logg,
		DedupTTL: cfg.Payments.CallbackDedupTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Auth:          authService,
			Users:         usersService,
			Contracts:     contractsService,
			Rentals:       rentalsService,
			Payments:      paymentsService,
			Notifications: notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
