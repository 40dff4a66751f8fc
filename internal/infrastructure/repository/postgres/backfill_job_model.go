package postgres

import (
	"database/sql"
	"time"

	"github.com/fplhq/minileague/internal/domain/backfill"
)

type backfillJobModel struct {
	ID         int64          `db:"id"`
	LeagueID   int64          `db:"league_id"`
	Status     string         `db:"status"`
	Attempts   int            `db:"attempts"`
	LastError  sql.NullString `db:"last_error"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	FinishedAt *time.Time     `db:"finished_at"`
}

func (m backfillJobModel) toDomain() backfill.Job {
	job := backfill.Job{
		ID:        m.ID,
		LeagueID:  m.LeagueID,
		Status:    backfill.Status(m.Status),
		Attempts:  m.Attempts,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.LastError.Valid {
		job.LastError = m.LastError.String
	}
	if m.FinishedAt != nil {
		finishedAt := m.FinishedAt.UTC()
		job.FinishedAt = &finishedAt
	}
	return job
}
