package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rapidusexpress/rapidus-backend/api/routes"
	"github.com/rapidusexpress/rapidus-backend/internal/auth"
	"github.com/rapidusexpress/rapidus-backend/internal/couriers"
	"github.com/rapidusexpress/rapidus-backend/internal/dispatch"
	"github.com/rapidusexpress/rapidus-backend/internal/establishments"
	"github.com/rapidusexpress/rapidus-backend/internal/intake"
	"github.com/rapidusexpress/rapidus-backend/internal/ledger"
	"github.com/rapidusexpress/rapidus-backend/internal/notifications"
	"github.com/rapidusexpress/rapidus-backend/pkg/auth/session"
	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/metrics"
	"github.com/rapidusexpress/rapidus-backend/pkg/migrate"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
	"github.com/rapidusexpress/rapidus-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		ProfileRepo:    authRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registrar, err := auth.NewRegistrar(authRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create registrar", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

	dispatchService, err := dispatch.NewService(
		dispatch.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		cfg.Dispatch,
		dispatchMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	intakeService, err := intake.NewService(intake.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create intake service", err)
		os.Exit(1)
	}

	couriersService, err := couriers.NewService(couriers.NewRepository(dbClient.DB()), redisClient, cfg.Positions)
	if err != nil {
		logg.Error(context.Background(), "failed to create couriers service", err)
		os.Exit(1)
	}

	establishmentsService, err := establishments.NewService(establishments.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create establishments service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:           authService,
			Registrar:      registrar,
			Dispatch:       dispatchService,
			Intake:         intakeService,
			Ledger:         ledgerService,
			Couriers:       couriersService,
			Establishments: establishmentsService,
			Notifications:  notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
