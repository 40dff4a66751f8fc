package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/fplhq/minileague/internal/domain/view"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

const (
	defaultWarmConcurrency = 4
	defaultWarmTimeBudget  = 30 * time.Second
)

type WarmInput struct {
	LeagueID    int64
	CurrentGw   int
	FromGw      int
	ToGw        int
	Origin      string
	Concurrency int
	TimeBudget  time.Duration
}

type WarmReport struct {
	Attempted int
	Succeeded int
	Failed    int
	TimedOut  bool
}

// WarmupService pre-populates the view cache by replaying GET requests
// against the service's own read endpoints, recent gameweeks first, inside a
// wall-clock budget. The budget gates dispatch only: tasks already in flight
// run to completion.
type WarmupService struct {
	httpClient  *http.Client
	provider    SportsProvider
	origin      string
	concurrency int
	timeBudget  time.Duration
	logger      *logging.Logger
	metrics     observability.Metrics
	now         func() time.Time
}

type WarmupConfig struct {
	HTTPClient  *http.Client
	Origin      string
	Concurrency int
	TimeBudget  time.Duration
}

func NewWarmupService(cfg WarmupConfig, provider SportsProvider, logger *logging.Logger, metrics observability.Metrics) *WarmupService {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWarmConcurrency
	}
	timeBudget := cfg.TimeBudget
	if timeBudget <= 0 {
		timeBudget = defaultWarmTimeBudget
	}
	return &WarmupService{
		httpClient:  httpClient,
		provider:    provider,
		origin:      cfg.Origin,
		concurrency: concurrency,
		timeBudget:  timeBudget,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

type warmTask struct {
	kind     view.Kind
	gameweek int
}

// Warm walks views x gameweeks from ToGw down to FromGw. Recent gameweeks go
// first so a blown budget sacrifices the oldest, least-read cells.
func (s *WarmupService) Warm(ctx context.Context, input WarmInput) (WarmReport, error) {
	ctx, span := startUsecaseSpan(ctx, "WarmupService.Warm")
	defer span.End()

	if input.LeagueID <= 0 || input.CurrentGw <= 0 {
		return WarmReport{}, fmt.Errorf("%w: league id and current gameweek must be positive", ErrInvalidInput)
	}
	if input.FromGw <= 0 {
		input.FromGw = 1
	}
	if input.ToGw <= 0 || input.ToGw > input.CurrentGw {
		input.ToGw = input.CurrentGw
	}
	if input.Concurrency <= 0 {
		input.Concurrency = s.concurrency
	}
	if input.TimeBudget <= 0 {
		input.TimeBudget = s.timeBudget
	}
	origin := input.Origin
	if origin == "" {
		origin = s.origin
	}
	if origin == "" {
		return WarmReport{}, fmt.Errorf("%w: warmup origin is required", ErrInvalidInput)
	}

	tasks := make([]warmTask, 0, (input.ToGw-input.FromGw+1)*len(view.AllKinds()))
	for gw := input.ToGw; gw >= input.FromGw; gw-- {
		for _, kind := range view.AllKinds() {
			tasks = append(tasks, warmTask{kind: kind, gameweek: gw})
		}
	}

	workers, err := ants.NewPool(input.Concurrency)
	if err != nil {
		return WarmReport{}, fmt.Errorf("create warmup pool: %w", err)
	}
	defer workers.Release()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
	)

	preview := bytebufferpool.Get()
	defer bytebufferpool.Put(preview)
	var previewMu sync.Mutex

	report := WarmReport{}
	start := s.now()

	for _, task := range tasks {
		if s.now().Sub(start) > input.TimeBudget {
			report.TimedOut = true
			break
		}

		task := task
		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()

			status, taskErr := s.warmOne(ctx, origin, input, task)
			ok := taskErr == nil && status >= 200 && status < 300
			if ok {
				succeeded.Add(1)
				s.metrics.Inc(observability.MetricWarmupTaskOK, 1)
			} else {
				failed.Add(1)
				s.metrics.Inc(observability.MetricWarmupTaskFailed, 1)
			}

			previewMu.Lock()
			_, _ = preview.WriteString(string(task.kind))
			_, _ = preview.WriteString("/gw")
			_, _ = preview.WriteString(strconv.Itoa(task.gameweek))
			_, _ = preview.WriteString("=")
			if taskErr != nil {
				_, _ = preview.WriteString("error")
			} else {
				_, _ = preview.WriteString(strconv.Itoa(status))
			}
			_, _ = preview.WriteString(" ")
			previewMu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			s.metrics.Inc(observability.MetricWarmupTaskFailed, 1)
		}
		report.Attempted++
	}

	wg.Wait()

	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())
	if report.TimedOut {
		s.metrics.Inc(observability.MetricWarmupTimedOut, 1)
	}

	s.logger.InfoContext(ctx, "warmup finished",
		"league_id", input.LeagueID,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"timed_out", report.TimedOut,
		"tasks", preview.String(),
	)
	return report, nil
}

func (s *WarmupService) warmOne(ctx context.Context, origin string, input WarmInput, task warmTask) (int, error) {
	url := fmt.Sprintf("%s/v1/views/%s?leagueId=%d&gw=%d&currentGw=%d",
		origin, viewPath(task.kind), input.LeagueID, task.gameweek, input.CurrentGw)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build warmup request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("warmup request %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}

// WarmLeague warms a league's full season with defaults. Used by the backfill
// runner.
func (s *WarmupService) WarmLeague(ctx context.Context, leagueID int64) error {
	if s.provider == nil {
		return fmt.Errorf("%w: sports provider is not configured", ErrDependencyUnavailable)
	}

	bootstrap, err := s.provider.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap for warmup: %w", err)
	}
	currentGw := bootstrap.CurrentGameweek()
	if currentGw <= 0 {
		return fmt.Errorf("%w: current gameweek unavailable", ErrDependencyUnavailable)
	}

	report, err := s.Warm(ctx, WarmInput{
		LeagueID:  leagueID,
		CurrentGw: currentGw,
		FromGw:    1,
		ToGw:      currentGw,
	})
	if err != nil {
		return err
	}
	if report.Attempted > 0 && report.Succeeded == 0 {
		return fmt.Errorf("%w: all %d warmup tasks failed", ErrDependencyUnavailable, report.Attempted)
	}
	return nil
}

func viewPath(kind view.Kind) string {
	if kind == view.KindActivityImpact {
		return "activity-impact"
	}
	return string(kind)
}
