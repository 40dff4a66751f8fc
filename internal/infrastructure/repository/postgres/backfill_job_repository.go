package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fplhq/minileague/internal/domain/backfill"
	qb "github.com/fplhq/minileague/internal/platform/querybuilder"
)

var backfillJobColumns = []string{"id", "league_id", "status", "attempts", "last_error", "created_at", "updated_at", "finished_at"}

type BackfillJobRepository struct {
	db *sqlx.DB
}

func NewBackfillJobRepository(db *sqlx.DB) *BackfillJobRepository {
	return &BackfillJobRepository{db: db}
}

func (r *BackfillJobRepository) Insert(ctx context.Context, leagueID int64) (backfill.Job, error) {
	query, args, err := qb.InsertInto("backfill_jobs").
		Columns("league_id", "status").
		Values(leagueID, string(backfill.StatusPending)).
		Suffix("RETURNING " + joinColumns(backfillJobColumns)).
		ToSQL()
	if err != nil {
		return backfill.Job{}, fmt.Errorf("build insert backfill job query: %w", err)
	}

	var model backfillJobModel
	if err := r.db.GetContext(ctx, &model, query, args...); err != nil {
		return backfill.Job{}, fmt.Errorf("insert backfill job league=%d: %w", leagueID, err)
	}
	return model.toDomain(), nil
}

func (r *BackfillJobRepository) ListByLeague(ctx context.Context, leagueID int64) ([]backfill.Job, error) {
	query, args, err := qb.Select(backfillJobColumns...).
		From("backfill_jobs").
		Where(qb.Eq("league_id", leagueID)).
		OrderBy("created_at DESC", "id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list backfill jobs query: %w", err)
	}

	var models []backfillJobModel
	if err := r.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, fmt.Errorf("list backfill jobs league=%d: %w", leagueID, err)
	}
	return toDomainJobs(models), nil
}

// ClaimOldestPending runs a single conditional UPDATE so exactly one claimer
// wins a row even under concurrent workers. The inner SELECT picks the oldest
// pending job; the status guard plus SKIP LOCKED keeps losers from blocking or
// double-claiming.
func (r *BackfillJobRepository) ClaimOldestPending(ctx context.Context) (backfill.Job, bool, error) {
	query := `UPDATE backfill_jobs
SET status = $1, attempts = attempts + 1, updated_at = NOW()
WHERE id = (
    SELECT id FROM backfill_jobs
    WHERE status = $2
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
) AND status = $2
RETURNING ` + joinColumns(backfillJobColumns)

	var model backfillJobModel
	err := r.db.GetContext(ctx, &model, query, string(backfill.StatusRunning), string(backfill.StatusPending))
	if err != nil {
		if isNotFound(err) {
			return backfill.Job{}, false, nil
		}
		return backfill.Job{}, false, fmt.Errorf("claim oldest pending backfill job: %w", err)
	}
	return model.toDomain(), true, nil
}

func (r *BackfillJobRepository) Finalize(ctx context.Context, jobID int64, status backfill.Status, lastError string, finishedAt time.Time) error {
	builder := qb.Update("backfill_jobs").
		Set("status", string(status)).
		Set("finished_at", finishedAt.UTC()).
		SetExpr("updated_at", "NOW()")
	if lastError != "" {
		builder = builder.Set("last_error", lastError)
	} else {
		builder = builder.SetExpr("last_error", "NULL")
	}

	query, args, err := builder.
		Where(qb.Eq("id", jobID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build finalize backfill job query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finalize backfill job id=%d status=%s: %w", jobID, status, err)
	}
	return nil
}

func (r *BackfillJobRepository) ListPendingOrRunning(ctx context.Context) ([]backfill.Job, error) {
	query, args, err := qb.Select(backfillJobColumns...).
		From("backfill_jobs").
		Where(qb.In("status", []any{string(backfill.StatusPending), string(backfill.StatusRunning)})).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list active backfill jobs query: %w", err)
	}

	var models []backfillJobModel
	if err := r.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, fmt.Errorf("list active backfill jobs: %w", err)
	}
	return toDomainJobs(models), nil
}

func (r *BackfillJobRepository) ListFailedLeagues(ctx context.Context, leagueIDs []int64) ([]int64, error) {
	if len(leagueIDs) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(leagueIDs))
	for _, id := range leagueIDs {
		values = append(values, id)
	}

	query, args, err := qb.Select("league_id", "status").
		From("backfill_jobs").
		Where(qb.In("league_id", values)).
		OrderBy("league_id ASC", "created_at DESC", "id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list failed leagues query: %w", err)
	}

	var rows []struct {
		LeagueID int64  `db:"league_id"`
		Status   string `db:"status"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list failed backfill leagues: %w", err)
	}

	// Rows arrive newest-first per league; the first row seen for a league is
	// its latest job.
	seen := make(map[int64]bool, len(rows))
	failed := make([]int64, 0)
	for _, row := range rows {
		if seen[row.LeagueID] {
			continue
		}
		seen[row.LeagueID] = true
		if row.Status == string(backfill.StatusFailed) {
			failed = append(failed, row.LeagueID)
		}
	}
	return failed, nil
}

func (r *BackfillJobRepository) Touch(ctx context.Context, jobID int64) error {
	query, args, err := qb.Update("backfill_jobs").
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", jobID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build touch backfill job query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch backfill job id=%d: %w", jobID, err)
	}
	return nil
}

func toDomainJobs(models []backfillJobModel) []backfill.Job {
	out := make([]backfill.Job, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out
}
