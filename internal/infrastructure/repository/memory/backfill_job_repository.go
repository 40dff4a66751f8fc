package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fplhq/minileague/internal/domain/backfill"
)

// BackfillJobRepository is an in-memory backfill.Repository used by tests and
// local runs without a database.
type BackfillJobRepository struct {
	mu     sync.Mutex
	jobs   []backfill.Job
	nextID int64
	now    func() time.Time
}

func NewBackfillJobRepository() *BackfillJobRepository {
	return &BackfillJobRepository{
		nextID: 1,
		now:    time.Now,
	}
}

func (r *BackfillJobRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *BackfillJobRepository) Insert(_ context.Context, leagueID int64) (backfill.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	job := backfill.Job{
		ID:        r.nextID,
		LeagueID:  leagueID,
		Status:    backfill.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.jobs = append(r.jobs, job)
	return job, nil
}

func (r *BackfillJobRepository) ListByLeague(_ context.Context, leagueID int64) ([]backfill.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]backfill.Job, 0)
	for _, job := range r.jobs {
		if job.LeagueID == leagueID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BackfillJobRepository) ClaimOldestPending(_ context.Context) (backfill.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldest := -1
	for i, job := range r.jobs {
		if job.Status != backfill.StatusPending {
			continue
		}
		if oldest == -1 || job.CreatedAt.Before(r.jobs[oldest].CreatedAt) {
			oldest = i
		}
	}
	if oldest == -1 {
		return backfill.Job{}, false, nil
	}

	r.jobs[oldest].Status = backfill.StatusRunning
	r.jobs[oldest].Attempts++
	r.jobs[oldest].UpdatedAt = r.now().UTC()
	return r.jobs[oldest], true, nil
}

func (r *BackfillJobRepository) Finalize(_ context.Context, jobID int64, status backfill.Status, lastError string, finishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.jobs {
		if r.jobs[i].ID != jobID {
			continue
		}
		r.jobs[i].Status = status
		r.jobs[i].LastError = lastError
		r.jobs[i].UpdatedAt = r.now().UTC()
		finished := finishedAt.UTC()
		r.jobs[i].FinishedAt = &finished
		return nil
	}
	return nil
}

func (r *BackfillJobRepository) ListPendingOrRunning(_ context.Context) ([]backfill.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]backfill.Job, 0)
	for _, job := range r.jobs {
		if job.Status == backfill.StatusPending || job.Status == backfill.StatusRunning {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BackfillJobRepository) ListFailedLeagues(_ context.Context, leagueIDs []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := make([]int64, 0)
	for _, leagueID := range leagueIDs {
		var latest *backfill.Job
		for i := range r.jobs {
			job := r.jobs[i]
			if job.LeagueID != leagueID {
				continue
			}
			if latest == nil || job.CreatedAt.After(latest.CreatedAt) ||
				(job.CreatedAt.Equal(latest.CreatedAt) && job.ID > latest.ID) {
				latest = &r.jobs[i]
			}
		}
		if latest != nil && latest.Status == backfill.StatusFailed {
			failed = append(failed, leagueID)
		}
	}
	return failed, nil
}

func (r *BackfillJobRepository) Touch(_ context.Context, jobID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.jobs {
		if r.jobs[i].ID == jobID {
			r.jobs[i].UpdatedAt = r.now().UTC()
			return nil
		}
	}
	return nil
}

// Jobs returns a copy of all stored jobs. Test helper.
func (r *BackfillJobRepository) Jobs() []backfill.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]backfill.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
