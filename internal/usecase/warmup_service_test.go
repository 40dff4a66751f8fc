package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fplhq/minileague/internal/platform/logging"
)

func TestWarmupService_WarmsAllCellsRecentFirst(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	service := NewWarmupService(WarmupConfig{Origin: server.URL}, nil, logging.NewNop(), nil)

	report, err := service.Warm(context.Background(), WarmInput{
		LeagueID:    42,
		CurrentGw:   3,
		FromGw:      1,
		ToGw:        3,
		Concurrency: 1,
		TimeBudget:  time.Minute,
	})
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}

	// 4 views x 3 gameweeks.
	if report.Attempted != 12 || report.Succeeded != 12 || report.Failed != 0 || report.TimedOut {
		t.Fatalf("unexpected report: %+v", report)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 12 {
		t.Fatalf("expected 12 requests, got %d", len(paths))
	}
	// Single worker preserves dispatch order: gameweek 3 cells come first.
	for _, path := range paths[:4] {
		if !strings.Contains(path, "gw=3") {
			t.Fatalf("recent gameweek must be warmed first, got %v", paths[:4])
		}
	}
	if !strings.Contains(paths[3], "/v1/views/activity-impact") {
		t.Fatalf("expected activity-impact path, got %s", paths[3])
	}
}

func TestWarmupService_Non2xxCountsAsFailed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	service := NewWarmupService(WarmupConfig{Origin: server.URL}, nil, logging.NewNop(), nil)

	report, err := service.Warm(context.Background(), WarmInput{
		LeagueID:    42,
		CurrentGw:   1,
		Concurrency: 1,
		TimeBudget:  time.Minute,
	})
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if report.Attempted != 4 || report.Succeeded != 2 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestWarmupService_TimeBudgetStopsDispatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	service := NewWarmupService(WarmupConfig{Origin: server.URL}, nil, logging.NewNop(), nil)

	// Every clock read advances 3s; an 8s budget admits only the first few
	// dispatch checks.
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	service.now = func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * 3 * time.Second)
	}

	report, err := service.Warm(context.Background(), WarmInput{
		LeagueID:    42,
		CurrentGw:   10,
		FromGw:      1,
		ToGw:        10,
		Concurrency: 2,
		TimeBudget:  8 * time.Second,
	})
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}

	total := 10 * 4
	if !report.TimedOut {
		t.Fatal("expected TimedOut report")
	}
	if report.Attempted >= total {
		t.Fatalf("budget must cut dispatch short: attempted %d of %d", report.Attempted, total)
	}
	// Everything dispatched before the cutoff still completed.
	if report.Succeeded+report.Failed != report.Attempted {
		t.Fatalf("in-flight tasks must finish: %+v", report)
	}
}

func TestWarmupService_InvalidInput(t *testing.T) {
	t.Parallel()

	service := NewWarmupService(WarmupConfig{Origin: "http://localhost:0"}, nil, logging.NewNop(), nil)

	if _, err := service.Warm(context.Background(), WarmInput{LeagueID: 0, CurrentGw: 1}); err == nil {
		t.Fatal("expected error for missing league id")
	}
	noOrigin := NewWarmupService(WarmupConfig{}, nil, logging.NewNop(), nil)
	if _, err := noOrigin.Warm(context.Background(), WarmInput{LeagueID: 1, CurrentGw: 1}); err == nil {
		t.Fatal("expected error for missing origin")
	}
}

func TestWarmupService_WarmLeagueUsesBootstrap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	provider := newStubProvider()
	provider.bootstrap = &Bootstrap{Gameweeks: []GameweekMeta{
		{ID: 1, Finished: true, DataChecked: true},
		{ID: 2, IsCurrent: true},
	}}
	service := NewWarmupService(WarmupConfig{Origin: server.URL}, provider, logging.NewNop(), nil)

	if err := service.WarmLeague(context.Background(), 42); err != nil {
		t.Fatalf("WarmLeague: %v", err)
	}
	// 4 views x 2 gameweeks.
	if calls.Load() != 8 {
		t.Fatalf("expected 8 warm requests, got %d", calls.Load())
	}
}
