// Package main provides crmctl, the operator CLI for the dealership CRM.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operator commands for the dealership CRM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		matrixCmd(),
		funnelCmd(),
		exportCmd(),
		bootstrapAdminCmd(),
	)
	return cmd
}

// runtimeDeps holds what the database-backed commands share.
type runtimeDeps struct {
	cfg   *config.Config
	logg  *logger.Logger
	db    *db.Client
	guard *access.Guard
}

func openDeps(ctx context.Context) (*runtimeDeps, error) {
	logg := logger.New(logger.Options{ServiceName: "crmctl", Output: os.Stderr})
	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "crmctl"
	logg = logger.New(logger.Options{
		ServiceName: "crmctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	return &runtimeDeps{
		cfg:   cfg,
		logg:  logg,
		db:    dbClient,
		guard: access.NewGuard(logg, nil),
	}, nil
}

func (d *runtimeDeps) close(ctx context.Context) {
	if err := d.db.Close(); err != nil {
		d.logg.Error(ctx, "error closing database", err)
	}
}

func (d *runtimeDeps) funnelService() (funnel.Service, error) {
	return funnel.NewService(
		funnel.NewRepository(d.db.DB()),
		dealers.NewRepository(d.db.DB()),
		d.guard,
		d.logg,
	)
}

func (d *runtimeDeps) incompleteService() (incomplete.Service, error) {
	return incomplete.NewService(incomplete.ServiceParams{
		Repository: incomplete.NewRepository(d.db.DB()),
		TxRunner:   d.db,
		Dealers:    dealers.NewRepository(d.db.DB()),
		Guard:      d.guard,
		Logger:     d.logg,
	})
}
