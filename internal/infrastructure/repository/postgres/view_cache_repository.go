package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fplhq/minileague/internal/domain/view"
	qb "github.com/fplhq/minileague/internal/platform/querybuilder"
)

var viewCacheColumns = []string{"league_id", "gameweek", "view", "payload", "fetched_at", "is_final"}

type ViewCacheRepository struct {
	db *sqlx.DB
}

func NewViewCacheRepository(db *sqlx.DB) *ViewCacheRepository {
	return &ViewCacheRepository{db: db}
}

func (r *ViewCacheRepository) Get(ctx context.Context, leagueID int64, gameweek int, kind view.Kind) (view.CachedPayload, bool, error) {
	query, args, err := qb.Select(viewCacheColumns...).
		From("view_cache").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("gameweek", gameweek),
			qb.Eq("view", string(kind)),
		).
		ToSQL()
	if err != nil {
		return view.CachedPayload{}, false, fmt.Errorf("build get view cache query: %w", err)
	}

	var model viewCacheModel
	if err := r.db.GetContext(ctx, &model, query, args...); err != nil {
		if isNotFound(err) {
			return view.CachedPayload{}, false, nil
		}
		return view.CachedPayload{}, false, fmt.Errorf("get view cache league=%d gw=%d view=%s: %w", leagueID, gameweek, kind, err)
	}

	return model.toDomain(), true, nil
}

func (r *ViewCacheRepository) GetRange(ctx context.Context, leagueID int64, kind view.Kind, fromGw, toGw int) ([]view.CachedPayload, error) {
	query, args, err := qb.Select(viewCacheColumns...).
		From("view_cache").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("view", string(kind)),
			qb.Expr("gameweek BETWEEN ? AND ?", fromGw, toGw),
		).
		OrderBy("gameweek ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build view cache range query: %w", err)
	}

	var models []viewCacheModel
	if err := r.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, fmt.Errorf("select view cache range league=%d view=%s: %w", leagueID, kind, err)
	}

	out := make([]view.CachedPayload, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out, nil
}

func (r *ViewCacheRepository) Upsert(ctx context.Context, leagueID int64, gameweek int, kind view.Kind, payload json.RawMessage, isFinal bool) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	query, args, err := qb.InsertInto("view_cache").
		Columns("league_id", "gameweek", "view", "payload", "is_final").
		Values(leagueID, gameweek, string(kind), []byte(payload), isFinal).
		Suffix(`ON CONFLICT (league_id, gameweek, view)
DO UPDATE SET
    payload = EXCLUDED.payload,
    is_final = view_cache.is_final OR EXCLUDED.is_final,
    fetched_at = NOW()`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert view cache query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert view cache league=%d gw=%d view=%s: %w", leagueID, gameweek, kind, err)
	}
	return nil
}

func (r *ViewCacheRepository) DeleteByLeague(ctx context.Context, leagueID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM view_cache WHERE league_id = $1", leagueID); err != nil {
		return fmt.Errorf("delete view cache league=%d: %w", leagueID, err)
	}
	return nil
}
