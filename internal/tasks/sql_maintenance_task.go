package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts (SQLite) or re-analyzes (Postgres) the
// telegram_users table.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")
	driver := "unknown"
	if deps.Config != nil {
		driver = deps.Config.Database.Driver
	}

	return func(ctx context.Context) error {
		if deps.Store == nil {
			log.DebugContext(ctx, "No identity store wired, skipping maintenance")
			return nil
		}

		began := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Identity store maintenance failed",
				"driver", driver, "error", err, "took", time.Since(began))
			return fmt.Errorf("identity store maintenance (%s): %w", driver, err)
		}

		log.InfoContext(ctx, "Identity store maintenance done", "driver", driver, "took", time.Since(began))
		return nil
	}
}
