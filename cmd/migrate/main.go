package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands need a live connection; everything else only touches files.
var dbCommands = map[string]func(context.Context, *migrate.Migrator, options) error{
	"up": func(ctx context.Context, m *migrate.Migrator, _ options) error {
		applied, err := m.Up(ctx)
		if err == nil {
			fmt.Printf("applied %d migration(s)\n", applied)
		}
		return err
	},
	"down": func(ctx context.Context, m *migrate.Migrator, _ options) error {
		return m.Down(ctx)
	},
	"status": func(ctx context.Context, m *migrate.Migrator, _ options) error {
		return m.Status(ctx, os.Stdout)
	},
	"version": func(ctx context.Context, m *migrate.Migrator, o options) error {
		if o.version == "" {
			return fmt.Errorf("missing -version")
		}
		return m.To(ctx, o.version)
	},
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	switch o.cmd {
	case "create":
		if o.name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name, time.Now().UTC())
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(o.dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	command, ok := dbCommands[o.cmd]
	if !ok {
		fail("unknown -cmd value: %s", o.cmd)
	}

	_ = godotenv.Load()
	bootLog := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": o.cmd,
		"dir": o.dir,
	})

	if err := withMigrator(ctx, cfg, logg, o.dir, func(m *migrate.Migrator) error {
		return command(ctx, m, o)
	}); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

func withMigrator(ctx context.Context, cfg *config.Config, logg *logger.Logger, dir string, fn func(*migrate.Migrator) error) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	m, err := migrate.New(sqlDB, dir)
	if err != nil {
		return err
	}
	return fn(m)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
