package postgres

import (
	"time"

	"github.com/fplhq/minileague/internal/domain/membership"
)

type userLeagueModel struct {
	UserID     string    `db:"user_id"`
	LeagueID   int64     `db:"league_id"`
	LeagueName string    `db:"league_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type userLeagueInsertModel struct {
	UserID     string `db:"user_id"`
	LeagueID   int64  `db:"league_id"`
	LeagueName string `db:"league_name"`
}

func (m userLeagueModel) toDomain() membership.UserLeague {
	return membership.UserLeague{
		UserID:     m.UserID,
		LeagueID:   m.LeagueID,
		LeagueName: m.LeagueName,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}
