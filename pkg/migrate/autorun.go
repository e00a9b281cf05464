package migrate

import (
	"context"
	"fmt"

	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot in dev when
// TRADEHUB_AUTO_MIGRATE is set. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	m, err := New(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate.autorun.start")
	if err := m.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
