package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot, only in dev and only
// with the auto-migrate flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	src, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, src)
	if err != nil {
		return err
	}

	applied, err := runner.Up(ctx)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "applied": applied})
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.dev_autorun")
	return nil
}
