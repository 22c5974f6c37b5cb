// Package scoring is the durable score gateway backed by PostgreSQL.
// Narrative session state never lands here; only cumulative points, the
// solved-task ledger, and derived stats.
package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Stats aggregates a user's durable counters.
type Stats struct {
	TotalScore  int `db:"total_score"`
	TotalSolved int `db:"total_solved"`
	Rank        int `db:"rank"`
}

// Entry is one leaderboard row.
type Entry struct {
	Name  string `db:"user_name"`
	Score int    `db:"echpoch_score"`
}

// Repo provides score persistence keyed by user name (unique in the schema).
type Repo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRepo wraps the database handle.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db, timeout: 3 * time.Second}
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, r.timeout)
}

const ensureUserQuery = `
INSERT INTO users (user_name)
VALUES ($1)
ON CONFLICT (user_name) DO UPDATE SET user_name = EXCLUDED.user_name
RETURNING user_id`

// EnsureUser creates the user row if absent and returns its id.
func (r *Repo) EnsureUser(ctx context.Context, name string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var id int64
	if err := r.db.GetContext(ctx, &id, ensureUserQuery, name); err != nil {
		return 0, fmt.Errorf("scoring: ensure user %q: %w", name, err)
	}
	return id, nil
}

// MarkSolved records the task as solved and credits its cost to the user, in
// one transaction. The ledger's primary key makes the credit idempotent: a
// repeat solve inserts nothing and credits nothing.
func (r *Repo) MarkSolved(ctx context.Context, name, taskName string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("scoring: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	if err := tx.GetContext(ctx, &userID, ensureUserQuery, name); err != nil {
		return false, fmt.Errorf("scoring: ensure user %q: %w", name, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO user_solved_tasks (user_id, task_id)
		SELECT $1, task_id FROM tasks WHERE task_name = $2
		ON CONFLICT DO NOTHING`,
		userID, taskName,
	)
	if err != nil {
		return false, fmt.Errorf("scoring: ledger insert for %q: %w", taskName, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("scoring: rows affected: %w", err)
	}
	if inserted == 0 {
		// Already solved, or the task is unknown; either way nothing to credit.
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("scoring: commit: %w", err)
		}
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET echpoch_score = echpoch_score + (SELECT cost_of_echpoch FROM tasks WHERE task_name = $1)
		WHERE user_id = $2`,
		taskName, userID,
	); err != nil {
		return false, fmt.Errorf("scoring: credit for %q: %w", taskName, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("scoring: commit: %w", err)
	}
	return true, nil
}

// Stats returns the user's durable counters and leaderboard rank. The user
// row is created when missing so first-time /score works.
func (r *Repo) Stats(ctx context.Context, name string) (Stats, error) {
	userID, err := r.EnsureUser(ctx, name)
	if err != nil {
		return Stats{}, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stats Stats
	err = r.db.GetContext(ctx, &stats, `
		SELECT u.echpoch_score AS total_score,
		       (SELECT COUNT(*) FROM user_solved_tasks WHERE user_id = u.user_id) AS total_solved,
		       (SELECT rank FROM (
		           SELECT user_id, RANK() OVER (ORDER BY echpoch_score DESC) AS rank FROM users
		       ) ranked WHERE ranked.user_id = u.user_id) AS rank
		FROM users u
		WHERE u.user_id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("scoring: stats for %q: %w", name, err)
	}
	return stats, nil
}

// Leaderboard returns the top scorers in descending score order.
func (r *Repo) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT user_name, echpoch_score
		FROM users
		ORDER BY echpoch_score DESC, user_name ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scoring: leaderboard: %w", err)
	}
	return entries, nil
}

// SolvedTasks lists the user's solved tasks, most recent first.
func (r *Repo) SolvedTasks(ctx context.Context, name string) ([]SolvedTask, error) {
	userID, err := r.EnsureUser(ctx, name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var tasks []SolvedTask
	err = r.db.SelectContext(ctx, &tasks, `
		SELECT t.task_name, t.cost_of_echpoch, ust.solved_at
		FROM tasks t
		JOIN user_solved_tasks ust ON t.task_id = ust.task_id
		WHERE ust.user_id = $1
		ORDER BY ust.solved_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("scoring: solved tasks for %q: %w", name, err)
	}
	return tasks, nil
}

// SolvedTask is one entry of the user's solved ledger.
type SolvedTask struct {
	TaskName string    `db:"task_name"`
	Cost     int       `db:"cost_of_echpoch"`
	SolvedAt time.Time `db:"solved_at"`
}
