package membership

import "context"

type Repository interface {
	// Upsert is keyed on (user_id, league_id) and refreshes league_name.
	Upsert(ctx context.Context, item UserLeague) error
	ListByUser(ctx context.Context, userID string) ([]UserLeague, error)
	Delete(ctx context.Context, userID string, leagueID int64) error
	// CountByLeague reports how many users still reference the league.
	CountByLeague(ctx context.Context, leagueID int64) (int, error)
	UpdateLeagueName(ctx context.Context, leagueID int64, name string) error
}

// RateLimiter is the one server-side procedure the store exposes: an atomic
// check-and-increment against a named bucket within a time window.
type RateLimiter interface {
	Allow(ctx context.Context, bucket string, limit int, windowSeconds int) (bool, error)
}
