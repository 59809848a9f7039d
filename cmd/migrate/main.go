package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cafe-backend/internal/auth"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|seed-admin")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory; empty uses the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// Neither of these needs config or a database.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("-name is required")
		}
		p, err := migrate.NewMigrationFile(opts.dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", p)
		return nil
	case "validate":
		src, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		if err := migrate.Validate(src); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if opts.cmd == "seed-admin" {
		created, err := auth.SeedAdmin(ctx, dbClient, cfg.Password, cfg.Admin)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "created", created), "migrate.admin_ready")
		return nil
	}

	sqlDB, release, err := migrationConn(ctx, cfg.DB, dbClient)
	if err != nil {
		return err
	}
	defer release()

	src, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, src)
	if err != nil {
		return err
	}

	if err := apply(ctx, logg, runner, opts); err != nil {
		logg.Error(logg.WithFields(ctx, pkgerrors.Diagnose(err).Fields()), "migrate.failed", err)
		return err
	}
	return nil
}

func apply(ctx context.Context, logg *logger.Logger, runner *migrate.Runner, opts options) error {
	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrate.up")
		return err
	case "down":
		return runner.Down(ctx)
	case "status":
		return runner.Status(ctx, os.Stdout)
	case "version":
		target, err := strconv.ParseInt(opts.version, 10, 64)
		if err != nil {
			return fmt.Errorf("-version %q: expected YYYYMMDDHHMMSS or 0", opts.version)
		}
		return runner.To(ctx, target)
	default:
		return fmt.Errorf("unknown command")
	}
}

// migrationConn gives goose its own lib/pq session on Postgres. A sqlite
// database has no second driver, so the gorm handle is shared and release
// leaves it open.
func migrationConn(ctx context.Context, cfg config.DBConfig, dbClient *db.Client) (*sql.DB, func() error, error) {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		shared, err := dbClient.DB().DB()
		if err != nil {
			return nil, nil, err
		}
		return shared, func() error { return nil }, nil
	}
	conn, err := migrate.OpenPostgres(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}
