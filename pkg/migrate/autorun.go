package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/dmmedia/pkg/config"
	"github.com/angelmondragon/dmmedia/pkg/db"
	"github.com/angelmondragon/dmmedia/pkg/db/models"
	"github.com/angelmondragon/dmmedia/pkg/logger"
)

// MaybeRunDev applies journal migrations when running in dev mode with auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil || !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	// The shipped SQL targets postgres; sqlite journals are created from the model.
	if Dialect(cfg.DB.Driver) == "sqlite3" {
		logg.Info(ctx, "auto-migrating upload journal model (sqlite)")
		return client.DB().WithContext(ctx).AutoMigrate(&models.UploadRecord{})
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, cfg.DB.Driver, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
