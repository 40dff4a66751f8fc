package view

import (
	"context"
	"encoding/json"
)

type Repository interface {
	Get(ctx context.Context, leagueID int64, gameweek int, kind Kind) (CachedPayload, bool, error)
	// GetRange returns existing rows for [fromGw, toGw] ascending by gameweek.
	// Gameweeks with no row are omitted.
	GetRange(ctx context.Context, leagueID int64, kind Kind, fromGw, toGw int) ([]CachedPayload, error)
	// Upsert is last-write-wins on (league_id, gameweek, view) and always
	// refreshes fetched_at.
	Upsert(ctx context.Context, leagueID int64, gameweek int, kind Kind, payload json.RawMessage, isFinal bool) error
	DeleteByLeague(ctx context.Context, leagueID int64) error
}
