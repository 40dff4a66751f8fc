package backfill

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, leagueID int64) (Job, error)
	// ListByLeague returns every job row for the league, newest first.
	ListByLeague(ctx context.Context, leagueID int64) ([]Job, error)
	// ClaimOldestPending atomically moves the oldest pending job to running
	// and increments attempts. It returns ok=false when no pending job exists
	// or a concurrent claimer won the row.
	ClaimOldestPending(ctx context.Context) (Job, bool, error)
	Finalize(ctx context.Context, jobID int64, status Status, lastError string, finishedAt time.Time) error
	ListPendingOrRunning(ctx context.Context) ([]Job, error)
	// ListFailedLeagues returns distinct league ids whose most recent job
	// failed.
	ListFailedLeagues(ctx context.Context, leagueIDs []int64) ([]int64, error)
	Touch(ctx context.Context, jobID int64) error
}
