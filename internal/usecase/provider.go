package usecase

import (
	"context"
	"time"
)

// SportsProvider is the read-only upstream fantasy API. Implementations
// normalize transient upstream failures (network errors, 5xx, timeouts) to
// zero values with a nil error so callers degrade gracefully; permanent
// failures (unknown league or entry) surface as ErrNotFound.
type SportsProvider interface {
	LeagueStandings(ctx context.Context, leagueID int64) (*LeagueStandings, error)
	Bootstrap(ctx context.Context) (*Bootstrap, error)
	EntryEvent(ctx context.Context, entryID int64, gameweek int) (*EntryEvent, error)
	LivePoints(ctx context.Context, gameweek int) (map[int64]int, error)
	EntryTransfers(ctx context.Context, entryID int64) ([]TransferRecord, error)
	EntryChips(ctx context.Context, entryID int64) ([]ChipRecord, error)
}

type LeagueStandings struct {
	LeagueID   int64
	LeagueName string
	Entries    []StandingEntry
}

// StandingEntry is one manager's row in the upstream classic standings.
type StandingEntry struct {
	EntryID    int64
	PlayerName string
	TeamName   string
	Rank       int
	LastRank   int
	Total      int
	EventTotal int
}

// PickSlot is one selected player within an entry's gameweek squad.
type PickSlot struct {
	PlayerID   int64
	Position   int
	Multiplier int
	IsCaptain  bool
}

// EntryEvent is an entry's picks plus per-gameweek history for one gameweek.
type EntryEvent struct {
	Points         int
	TotalPoints    int
	ActiveChip     string
	TransfersCount int
	TransfersCost  int
	PointsOnBench  int
	Picks          []PickSlot
}

type GameweekMeta struct {
	ID          int
	IsCurrent   bool
	Finished    bool
	DataChecked bool
}

type PlayerMeta struct {
	ID      int64
	WebName string
}

// Bootstrap is the upstream static dataset: all players and all gameweek
// metadata. Providers cache it locally for a short freshness window.
type Bootstrap struct {
	Players   map[int64]PlayerMeta
	Gameweeks []GameweekMeta
}

// CurrentGameweek returns the id of the gameweek flagged current upstream, or
// the last finished one when nothing is flagged (pre-deadline gap).
func (b *Bootstrap) CurrentGameweek() int {
	if b == nil {
		return 0
	}
	last := 0
	for _, gw := range b.Gameweeks {
		if gw.IsCurrent {
			return gw.ID
		}
		if gw.Finished && gw.ID > last {
			last = gw.ID
		}
	}
	return last
}

// GameweekLocked reports whether the gameweek's data is final upstream:
// finished and bonus/data checks complete.
func (b *Bootstrap) GameweekLocked(gameweek int) bool {
	if b == nil {
		return false
	}
	for _, gw := range b.Gameweeks {
		if gw.ID == gameweek {
			return gw.Finished && gw.DataChecked
		}
	}
	return false
}

// PlayerName resolves a display name, defaulting to "Unknown" so view models
// always render.
func (b *Bootstrap) PlayerName(playerID int64) string {
	if b != nil {
		if p, ok := b.Players[playerID]; ok && p.WebName != "" {
			return p.WebName
		}
	}
	return "Unknown"
}

type TransferRecord struct {
	PlayerIn  int64
	PlayerOut int64
	Gameweek  int
	Time      time.Time
}

type ChipRecord struct {
	Name     string
	Gameweek int
}

const (
	ChipTripleCaptain = "3xc"
	ChipBenchBoost    = "bboost"
	ChipFreeHit       = "freehit"
	ChipWildcard      = "wildcard"
)
