package usecase

import (
	"context"
	"testing"

	"github.com/fplhq/minileague/internal/platform/logging"
)

func TestStandingsService_LockedGameweekKeepsUpstreamPoints(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{
		{EntryID: 1, PlayerName: "Alice", Rank: 1, LastRank: 1, Total: 500, EventTotal: 60},
		{EntryID: 2, PlayerName: "Bob", Rank: 2, LastRank: 2, Total: 480, EventTotal: 55},
	}

	rows, err := service.EnrichStandings(context.Background(), entries, 5, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}
	if rows[0].GwPoints != 60 || rows[1].GwPoints != 55 {
		t.Fatalf("locked gameweek must keep upstream points: %+v", rows)
	}
	if provider.callCount("live") != 0 {
		t.Fatal("locked gameweek must not fetch live data")
	}
}

func TestStandingsService_RowsCarryTransferActivity(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	provider.events[eventKey(1, 5)] = &EntryEvent{TransfersCount: 2, TransfersCost: 4}
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{
		{EntryID: 1, PlayerName: "Alice", Total: 500, EventTotal: 60},
		{EntryID: 2, PlayerName: "Bob", Total: 480, EventTotal: 55},
	}

	rows, err := service.EnrichStandings(context.Background(), entries, 5, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}
	if rows[0].Transfers != 2 || rows[0].TransfersCost != 4 {
		t.Fatalf("expected gameweek transfer activity on the row: %+v", rows[0])
	}
	// No history row for Bob: the transfer fields stay zero.
	if rows[1].Transfers != 0 || rows[1].TransfersCost != 0 {
		t.Fatalf("degraded entry must report zero transfer activity: %+v", rows[1])
	}
}

func TestStandingsService_LiveGameweekRecomputesFromPicks(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	provider.live[8] = map[int64]int{101: 10, 202: 8}
	provider.events[eventKey(1, 8)] = &EntryEvent{
		Picks: []PickSlot{
			{PlayerID: 101, Multiplier: 1},
			{PlayerID: 202, Multiplier: 2, IsCaptain: true},
		},
	}
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{{EntryID: 1, PlayerName: "Alice", LastRank: 1, Total: 500, EventTotal: 40}}

	rows, err := service.EnrichStandings(context.Background(), entries, 8, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}
	// 10*1 + 8*2 from live points and multipliers.
	if rows[0].GwPoints != 26 {
		t.Fatalf("expected live gw points 26, got %d", rows[0].GwPoints)
	}
	if rows[0].TotalPoints != 500-40+26 {
		t.Fatalf("live total must swap the snapshot event total for the live one, got %d", rows[0].TotalPoints)
	}
}

func TestStandingsService_MovementSignConvention(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{
		{EntryID: 1, PlayerName: "Alice", LastRank: 3, Total: 520},
		{EntryID: 2, PlayerName: "Bob", LastRank: 1, Total: 510},
		{EntryID: 3, PlayerName: "Cara", LastRank: 2, Total: 505},
	}

	rows, err := service.EnrichStandings(context.Background(), entries, 5, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}

	// Alice climbed from 3 to 1: movement +2.
	if rows[0].EntryID != 1 || rows[0].Rank != 1 || rows[0].Movement != 2 {
		t.Fatalf("unexpected top row: %+v", rows[0])
	}
	// Bob dropped from 1 to 2: movement -1.
	if rows[1].EntryID != 2 || rows[1].Movement != -1 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestStandingsService_TiesKeepUpstreamOrder(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{
		{EntryID: 7, PlayerName: "First", Total: 400},
		{EntryID: 3, PlayerName: "Second", Total: 400},
	}

	rows, err := service.EnrichStandings(context.Background(), entries, 5, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}
	if rows[0].EntryID != 7 || rows[1].EntryID != 3 {
		t.Fatalf("equal totals must keep upstream order: %+v", rows)
	}
}

func TestStandingsService_DegradedEntryFallsBackToSnapshot(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	provider.live[8] = map[int64]int{101: 10}
	// No event rows: every picks fetch comes back empty.
	service := NewStandingsService(provider, logging.NewNop(), nil)

	entries := []StandingEntry{{EntryID: 1, PlayerName: "Alice", Total: 500, EventTotal: 40}}
	rows, err := service.EnrichStandings(context.Background(), entries, 8, 8)
	if err != nil {
		t.Fatalf("EnrichStandings: %v", err)
	}
	if rows[0].GwPoints != 40 || rows[0].TotalPoints != 500 {
		t.Fatalf("degraded entry must keep the upstream snapshot: %+v", rows[0])
	}
}
