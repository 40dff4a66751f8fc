package httpapi

import (
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/usecase"
)

type runJobsRequest struct {
	BatchSize int `json:"batchSize" validate:"omitempty,gt=0"`
}

type jobResultItem struct {
	JobID    int64  `json:"jobId"`
	LeagueID int64  `json:"leagueId"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// RunJobs drains up to batchSize pending backfill jobs and reports the
// outcome of each.
func (h *Handler) RunJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunJobs")
	defer span.End()

	var req runJobsRequest
	if r.ContentLength > 0 {
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: malformed body", usecase.ErrInvalidInput))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
			return
		}
	}

	results, err := h.backfills.RunBatch(ctx, req.BatchSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]jobResultItem, 0, len(results))
	for _, result := range results {
		item := jobResultItem{
			JobID:    result.Job.ID,
			LeagueID: result.Job.LeagueID,
			Status:   "succeeded",
		}
		if result.Err != nil {
			item.Status = "failed"
			item.Error = result.Err.Error()
		}
		items = append(items, item)
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{"jobs": items})
}

func (h *Handler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EnqueueJob")
	defer span.End()

	req, err := h.decodeLeagueRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	job, created, err := h.backfills.Enqueue(ctx, req.LeagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, map[string]any{
		"jobId":   job.ID,
		"created": created,
	})
}

type activeJobItem struct {
	JobID     int64     `json:"jobId"`
	LeagueID  int64     `json:"leagueId"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActiveJobs lists the queue's live work: pending jobs and running jobs whose
// claim is still fresh.
func (h *Handler) ActiveJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ActiveJobs")
	defer span.End()

	jobs, err := h.backfills.ListActive(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]activeJobItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, activeJobItem{
			JobID:     job.ID,
			LeagueID:  job.LeagueID,
			Status:    string(job.Status),
			Attempts:  job.Attempts,
			UpdatedAt: job.UpdatedAt,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{"jobs": items})
}

type requeueFailedRequest struct {
	LeagueIDs []int64 `json:"leagueIds" validate:"required,min=1,dive,gt=0"`
}

func (h *Handler) RequeueFailedJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RequeueFailedJobs")
	defer span.End()

	var req requeueFailedRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: malformed body", usecase.ErrInvalidInput))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	requeued, err := h.backfills.RequeueFailed(ctx, req.LeagueIDs)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]int{"requeued": requeued})
}
