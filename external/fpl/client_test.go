package fpl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		Logger:     logging.NewNop(),
	})
	return client, server
}

func TestClient_LeagueStandings(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leagues-classic/42/standings/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"league": {"id": 42, "name": "Office League"},
			"standings": {"has_next": false, "results": [
				{"entry": 7, "player_name": "Sam Lee", "entry_name": "Samba FC", "rank": 1, "last_rank": 2, "total": 512, "event_total": 61}
			]}
		}`))
	}))

	standings, err := client.LeagueStandings(context.Background(), 42)
	if err != nil {
		t.Fatalf("LeagueStandings: %v", err)
	}
	if standings == nil {
		t.Fatal("expected standings, got nil")
	}
	if standings.LeagueName != "Office League" {
		t.Fatalf("unexpected league name %q", standings.LeagueName)
	}
	if len(standings.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(standings.Entries))
	}
	entry := standings.Entries[0]
	if entry.EntryID != 7 || entry.Rank != 1 || entry.LastRank != 2 || entry.Total != 512 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestClient_NotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.LeagueStandings(context.Background(), 42)
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_TransientFailureReturnsNil(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	standings, err := client.LeagueStandings(context.Background(), 42)
	if err != nil {
		t.Fatalf("transient failure should not surface an error, got %v", err)
	}
	if standings != nil {
		t.Fatalf("expected nil standings, got %+v", standings)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 1 retry (2 calls), got %d", got)
	}
}

func TestClient_LivePointsIndexedByPlayer(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"elements": [
			{"id": 101, "stats": {"total_points": 13}},
			{"id": 202, "stats": {"total_points": 2}}
		]}`))
	}))

	points, err := client.LivePoints(context.Background(), 5)
	if err != nil {
		t.Fatalf("LivePoints: %v", err)
	}
	if points[101] != 13 || points[202] != 2 {
		t.Fatalf("unexpected points map: %v", points)
	}
}

func TestClient_BootstrapCachedBetweenCalls(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{
			"events": [
				{"id": 4, "is_current": false, "finished": true, "data_checked": true},
				{"id": 5, "is_current": true, "finished": false, "data_checked": false}
			],
			"elements": [{"id": 101, "web_name": "Saka"}]
		}`))
	}))

	first, err := client.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	second, err := client.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", calls.Load())
	}
	if first.CurrentGameweek() != 5 || second.CurrentGameweek() != 5 {
		t.Fatal("unexpected current gameweek")
	}
	if !first.GameweekLocked(4) || first.GameweekLocked(5) {
		t.Fatal("unexpected lock flags")
	}
	if first.PlayerName(101) != "Saka" || first.PlayerName(999) != "Unknown" {
		t.Fatal("unexpected player name resolution")
	}
}

func TestClient_EntryEventDecodesChipAndPicks(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"active_chip": "3xc",
			"entry_history": {"points": 61, "total_points": 512, "event_transfers": 2, "event_transfers_cost": 4, "points_on_bench": 9},
			"picks": [
				{"element": 101, "position": 1, "multiplier": 3, "is_captain": true},
				{"element": 202, "position": 12, "multiplier": 0, "is_captain": false}
			]
		}`))
	}))

	event, err := client.EntryEvent(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("EntryEvent: %v", err)
	}
	if event.ActiveChip != usecase.ChipTripleCaptain {
		t.Fatalf("unexpected chip %q", event.ActiveChip)
	}
	if event.TransfersCost != 4 || event.PointsOnBench != 9 {
		t.Fatalf("unexpected history: %+v", event)
	}
	if len(event.Picks) != 2 || !event.Picks[0].IsCaptain || event.Picks[0].Multiplier != 3 {
		t.Fatalf("unexpected picks: %+v", event.Picks)
	}
}

func TestClient_InvalidInput(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})

	if _, err := client.LeagueStandings(context.Background(), 0); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := client.EntryEvent(context.Background(), 7, 0); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
