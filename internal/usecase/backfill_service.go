package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fplhq/minileague/internal/domain/backfill"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

const (
	defaultStaleAfter = 15 * time.Minute
	defaultBatchSize  = 5
)

// WarmupRunner executes the actual cache warm for one league.
type WarmupRunner interface {
	WarmLeague(ctx context.Context, leagueID int64) error
}

// BackfillService manages the durable backfill queue: one active job per
// league, claim-then-execute workers, terminal rows kept as history.
type BackfillService struct {
	jobs       backfill.Repository
	runner     WarmupRunner
	staleAfter time.Duration
	logger     *logging.Logger
	metrics    observability.Metrics
	now        func() time.Time
}

func NewBackfillService(
	jobs backfill.Repository,
	runner WarmupRunner,
	staleAfter time.Duration,
	logger *logging.Logger,
	metrics observability.Metrics,
) *BackfillService {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &BackfillService{
		jobs:       jobs,
		runner:     runner,
		staleAfter: staleAfter,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Enqueue requests a backfill for a league. When a pending or live running
// job already covers the league, that job is returned and no row is created.
// A running job untouched past the stale threshold no longer blocks a new
// enqueue; its row is left for inspection.
func (s *BackfillService) Enqueue(ctx context.Context, leagueID int64) (backfill.Job, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.Enqueue")
	defer span.End()

	if leagueID <= 0 {
		return backfill.Job{}, false, fmt.Errorf("%w: league id must be positive", ErrInvalidInput)
	}

	existing, err := s.jobs.ListByLeague(ctx, leagueID)
	if err != nil {
		return backfill.Job{}, false, fmt.Errorf("list backfill jobs league=%d: %w", leagueID, err)
	}
	now := s.now()
	for _, job := range existing {
		if job.Active(now, s.staleAfter) {
			return job, false, nil
		}
	}

	job, err := s.jobs.Insert(ctx, leagueID)
	if err != nil {
		return backfill.Job{}, false, fmt.Errorf("insert backfill job league=%d: %w", leagueID, err)
	}
	s.logger.InfoContext(ctx, "backfill job enqueued", "league_id", leagueID, "job_id", job.ID)
	return job, true, nil
}

// ListActive returns the queue's live work: pending jobs plus running jobs
// touched within the stale threshold. Stale running rows are left out the same
// way Enqueue's dedup ignores them.
func (s *BackfillService) ListActive(ctx context.Context) ([]backfill.Job, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.ListActive")
	defer span.End()

	jobs, err := s.jobs.ListPendingOrRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active backfill jobs: %w", err)
	}

	now := s.now()
	active := make([]backfill.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Active(now, s.staleAfter) {
			active = append(active, job)
		}
	}
	return active, nil
}

// ClaimNext atomically claims the oldest pending job. Nil means the queue is
// empty or a concurrent claimer won the row.
func (s *BackfillService) ClaimNext(ctx context.Context) (*backfill.Job, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.ClaimNext")
	defer span.End()

	job, ok, err := s.jobs.ClaimOldestPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim backfill job: %w", err)
	}
	if !ok {
		s.metrics.Inc(observability.MetricClaimEmpty, 1)
		return nil, nil
	}
	s.metrics.Inc(observability.MetricClaimWon, 1)
	return &job, nil
}

// Finalize moves a claimed job to its terminal status.
func (s *BackfillService) Finalize(ctx context.Context, jobID int64, runErr error) error {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.Finalize")
	defer span.End()

	status := backfill.StatusSucceeded
	lastError := ""
	if runErr != nil {
		status = backfill.StatusFailed
		lastError = runErr.Error()
	}

	if err := s.jobs.Finalize(ctx, jobID, status, lastError, s.now().UTC()); err != nil {
		return fmt.Errorf("finalize backfill job id=%d: %w", jobID, err)
	}
	return nil
}

// RequeueFailed creates fresh pending rows for leagues whose latest job
// failed. Terminal rows are never mutated. Returns how many rows were created.
func (s *BackfillService) RequeueFailed(ctx context.Context, leagueIDs []int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.RequeueFailed")
	defer span.End()

	failed, err := s.jobs.ListFailedLeagues(ctx, leagueIDs)
	if err != nil {
		return 0, fmt.Errorf("list failed backfill leagues: %w", err)
	}

	created := 0
	for _, leagueID := range failed {
		if _, ok, err := s.Enqueue(ctx, leagueID); err != nil {
			return created, err
		} else if ok {
			created++
		}
	}
	return created, nil
}

type JobResult struct {
	Job backfill.Job
	Err error
}

// RunBatch claims and executes up to batchSize jobs synchronously. Every
// claimed job reaches a terminal status even when the runner panics.
func (s *BackfillService) RunBatch(ctx context.Context, batchSize int) ([]JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.RunBatch")
	defer span.End()

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	results := make([]JobResult, 0, batchSize)
	for len(results) < batchSize {
		job, err := s.ClaimNext(ctx)
		if err != nil {
			return results, err
		}
		if job == nil {
			break
		}

		runErr := s.runOne(ctx, *job)
		if finalizeErr := s.Finalize(ctx, job.ID, runErr); finalizeErr != nil {
			s.logger.ErrorContext(ctx, "backfill finalize failed", "job_id", job.ID, "error", finalizeErr)
		}
		if runErr != nil {
			s.logger.WarnContext(ctx, "backfill job failed", "job_id", job.ID, "league_id", job.LeagueID, "error", runErr)
		}
		results = append(results, JobResult{Job: *job, Err: runErr})
	}
	return results, nil
}

func (s *BackfillService) runOne(ctx context.Context, job backfill.Job) (runErr error) {
	stopTouch := s.keepClaimFresh(ctx, job.ID)
	defer stopTouch()
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("backfill runner panicked: %v", r)
		}
	}()

	if s.runner == nil {
		return fmt.Errorf("%w: warmup runner is not configured", ErrDependencyUnavailable)
	}
	return s.runner.WarmLeague(ctx, job.LeagueID)
}

// keepClaimFresh touches the running row periodically so a long warm is not
// mistaken for an abandoned claim. The returned func stops the keepalive and
// waits for it to exit.
func (s *BackfillService) keepClaimFresh(ctx context.Context, jobID int64) func() {
	interval := s.staleAfter / 3
	if interval <= 0 {
		interval = time.Minute
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.jobs.Touch(ctx, jobID); err != nil {
					s.logger.WarnContext(ctx, "backfill keepalive touch failed", "job_id", jobID, "error", err)
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}
