package scoring

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"avylbot/core/bootstrap"
	"avylbot/core/logger"
	"avylbot/internal/story"
	"log/slog"
)

// TasksSeeder upserts one task row per rewardable catalog part. Costs follow
// the catalog on every start so content edits propagate to the database.
func TasksSeeder(specs []story.TaskSpec) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		for _, spec := range specs {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO tasks (task_name, cost_of_echpoch)
				VALUES ($1, $2)
				ON CONFLICT (task_name) DO UPDATE SET cost_of_echpoch = EXCLUDED.cost_of_echpoch`,
				spec.Name, spec.Cost,
			); err != nil {
				return fmt.Errorf("scoring: seed task %q: %w", spec.Name, err)
			}
		}
		logger.SEED.Info("tasks seeded",
			slog.String("event", "tasks"),
			slog.Int("count", len(specs)),
		)
		return nil
	})
}
