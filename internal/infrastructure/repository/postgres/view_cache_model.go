package postgres

import (
	"encoding/json"
	"time"

	"github.com/fplhq/minileague/internal/domain/view"
)

type viewCacheModel struct {
	LeagueID  int64           `db:"league_id"`
	Gameweek  int             `db:"gameweek"`
	View      string          `db:"view"`
	Payload   json.RawMessage `db:"payload"`
	FetchedAt time.Time       `db:"fetched_at"`
	IsFinal   bool            `db:"is_final"`
}

func (m viewCacheModel) toDomain() view.CachedPayload {
	return view.CachedPayload{
		LeagueID:  m.LeagueID,
		Gameweek:  m.Gameweek,
		Kind:      view.Kind(m.View),
		Payload:   m.Payload,
		FetchedAt: m.FetchedAt.UTC(),
		IsFinal:   m.IsFinal,
	}
}
