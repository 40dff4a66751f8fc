package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fplhq/minileague/internal/domain/membership"
	qb "github.com/fplhq/minileague/internal/platform/querybuilder"
)

var userLeagueColumns = []string{"user_id", "league_id", "league_name", "created_at", "updated_at"}

type UserLeagueRepository struct {
	db *sqlx.DB
}

func NewUserLeagueRepository(db *sqlx.DB) *UserLeagueRepository {
	return &UserLeagueRepository{db: db}
}

func (r *UserLeagueRepository) Upsert(ctx context.Context, item membership.UserLeague) error {
	userID := strings.TrimSpace(item.UserID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	leagueName := strings.TrimSpace(item.LeagueName)
	if leagueName == "" {
		leagueName = membership.PlaceholderLeagueName
	}

	model := userLeagueInsertModel{
		UserID:     userID,
		LeagueID:   item.LeagueID,
		LeagueName: leagueName,
	}

	query, args, err := qb.InsertModel("user_leagues", model, `ON CONFLICT (user_id, league_id)
DO UPDATE SET
    league_name = EXCLUDED.league_name,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert user league query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user league user=%s league=%d: %w", userID, item.LeagueID, err)
	}
	return nil
}

func (r *UserLeagueRepository) ListByUser(ctx context.Context, userID string) ([]membership.UserLeague, error) {
	query, args, err := qb.Select(userLeagueColumns...).
		From("user_leagues").
		Where(qb.Eq("user_id", userID)).
		OrderBy("created_at ASC", "league_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list user leagues query: %w", err)
	}

	var models []userLeagueModel
	if err := r.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, fmt.Errorf("list user leagues user=%s: %w", userID, err)
	}

	out := make([]membership.UserLeague, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out, nil
}

func (r *UserLeagueRepository) Delete(ctx context.Context, userID string, leagueID int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM user_leagues WHERE user_id = $1 AND league_id = $2",
		userID, leagueID,
	); err != nil {
		return fmt.Errorf("delete user league user=%s league=%d: %w", userID, leagueID, err)
	}
	return nil
}

func (r *UserLeagueRepository) CountByLeague(ctx context.Context, leagueID int64) (int, error) {
	query, args, err := qb.Select("COUNT(*)").
		From("user_leagues").
		Where(qb.Eq("league_id", leagueID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count league members query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count league members league=%d: %w", leagueID, err)
	}
	return count, nil
}

func (r *UserLeagueRepository) UpdateLeagueName(ctx context.Context, leagueID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	query, args, err := qb.Update("user_leagues").
		Set("league_name", name).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("league_id", leagueID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update league name query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update league name league=%d: %w", leagueID, err)
	}
	return nil
}
