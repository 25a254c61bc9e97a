package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/angelmondragon/dealercrm-backend/api/routes"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/auth"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	"github.com/angelmondragon/dealercrm-backend/internal/users"
	"github.com/angelmondragon/dealercrm-backend/pkg/auth/session"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/instance"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/migrate"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
	"github.com/angelmondragon/dealercrm-backend/pkg/redis"
	"github.com/joho/godotenv"
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

	reg := metrics.NewRegistry()
	leadMetrics := metrics.NewLeadMetrics(reg)
	guard := access.NewGuard(logg, leadMetrics)
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	dealerRepo := dealers.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	sessionRepo := incomplete.NewRepository(dbClient.DB())

	dealersService, err := dealers.NewService(dealerRepo, dbClient, emitter, guard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dealers service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repository: userRepo,
		TxRunner:   dbClient,
		Outbox:     emitter,
		Dealers:    dealerRepo,
		Guard:      guard,
		Password:   cfg.Password,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Actors:         usersService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	leadsService, err := leads.NewService(leads.ServiceParams{
		Repository: leads.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     emitter,
		Dealers:    dealerRepo,
		Sessions:   sessionRepo,
		Guard:      guard,
		Metrics:    leadMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leads service", err)
		os.Exit(1)
	}

	incompleteService, err := incomplete.NewService(incomplete.ServiceParams{
		Repository: sessionRepo,
		TxRunner:   dbClient,
		Dealers:    dealerRepo,
		Guard:      guard,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create incomplete-lead service", err)
		os.Exit(1)
	}

	funnelService, err := funnel.NewService(funnel.NewRepository(dbClient.DB()), dealerRepo, guard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create funnel service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			reg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			usersService,
			dealersService,
			leadsService,
			incompleteService,
			funnelService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
