package backfill

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is one durable backfill request for a league. Terminal rows are kept as
// history; a requeue inserts a fresh pending row instead of mutating them.
type Job struct {
	ID         int64
	LeagueID   int64
	Status     Status
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// Active reports whether the job still counts against the per-league
// active-capacity limit. A running job untouched for longer than staleAfter is
// considered abandoned and no longer active; its row is left for an operator.
func (j Job) Active(now time.Time, staleAfter time.Duration) bool {
	switch j.Status {
	case StatusPending:
		return true
	case StatusRunning:
		if staleAfter <= 0 {
			return true
		}
		return now.Sub(j.UpdatedAt) <= staleAfter
	default:
		return false
	}
}
