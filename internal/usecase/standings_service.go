package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

const defaultEnrichConcurrency = 5

// StandingsService turns raw upstream standings into the league view rows:
// live gameweeks get points recomputed from live data and picks, locked
// gameweeks keep the upstream numbers.
type StandingsService struct {
	provider    SportsProvider
	concurrency int
	logger      *logging.Logger
	metrics     observability.Metrics
}

func NewStandingsService(provider SportsProvider, logger *logging.Logger, metrics observability.Metrics) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &StandingsService{
		provider:    provider,
		concurrency: defaultEnrichConcurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// BuildLeagueView fetches standings and enriches them for one gameweek.
func (s *StandingsService) BuildLeagueView(ctx context.Context, leagueID int64, gameweek, currentGw int) (LeagueView, error) {
	ctx, span := startUsecaseSpan(ctx, "StandingsService.BuildLeagueView")
	defer span.End()

	standings, err := s.provider.LeagueStandings(ctx, leagueID)
	if err != nil {
		return LeagueView{}, fmt.Errorf("league standings league=%d: %w", leagueID, err)
	}
	if standings == nil {
		return LeagueView{}, fmt.Errorf("%w: standings temporarily unavailable", ErrDependencyUnavailable)
	}

	rows, err := s.EnrichStandings(ctx, standings.Entries, gameweek, currentGw)
	if err != nil {
		return LeagueView{}, err
	}

	return LeagueView{
		LeagueID:   leagueID,
		LeagueName: standings.LeagueName,
		Gameweek:   gameweek,
		Rows:       rows,
	}, nil
}

// EnrichStandings computes per-entry gameweek points and transfer activity,
// re-ranks by total, and derives movement against the upstream previous rank.
// Positive movement means the entry climbed: previousRank 3 to rank 1 is +2.
func (s *StandingsService) EnrichStandings(ctx context.Context, entries []StandingEntry, gameweek, currentGw int) ([]LeagueRow, error) {
	ctx, span := startUsecaseSpan(ctx, "StandingsService.EnrichStandings")
	defer span.End()

	if len(entries) == 0 {
		return []LeagueRow{}, nil
	}

	live := gameweek == currentGw

	var livePoints map[int64]int
	if live {
		points, err := s.provider.LivePoints(ctx, gameweek)
		if err != nil {
			return nil, fmt.Errorf("live points gw=%d: %w", gameweek, err)
		}
		livePoints = points
	}

	rows := make([]LeagueRow, len(entries))
	workers := pool.New().WithMaxGoroutines(s.concurrency)
	for i := range entries {
		i := i
		workers.Go(func() {
			rows[i] = s.enrichEntry(ctx, entries[i], gameweek, live, livePoints)
		})
	}
	workers.Wait()

	// Stable keeps upstream order for equal totals.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalPoints > rows[j].TotalPoints })
	for i := range rows {
		rows[i].Rank = i + 1
		if rows[i].PreviousRank > 0 {
			rows[i].Movement = rows[i].PreviousRank - rows[i].Rank
		}
	}

	return rows, nil
}

func (s *StandingsService) enrichEntry(ctx context.Context, entry StandingEntry, gameweek int, live bool, livePoints map[int64]int) LeagueRow {
	row := LeagueRow{
		EntryID:      entry.EntryID,
		PlayerName:   entry.PlayerName,
		TeamName:     entry.TeamName,
		PreviousRank: entry.LastRank,
		GwPoints:     entry.EventTotal,
		TotalPoints:  entry.Total,
	}

	event, err := s.provider.EntryEvent(ctx, entry.EntryID, gameweek)
	if err != nil || event == nil {
		if err != nil {
			s.logger.WarnContext(ctx, "entry event unavailable for enrichment", "entry_id", entry.EntryID, "gameweek", gameweek, "error", err)
		}
		// Degrade to the upstream snapshot for this entry.
		return row
	}

	row.Transfers = event.TransfersCount
	row.TransfersCost = event.TransfersCost

	if !live || livePoints == nil {
		return row
	}

	gwPoints := 0
	for _, pick := range event.Picks {
		gwPoints += livePoints[pick.PlayerID] * pick.Multiplier
	}

	row.GwPoints = gwPoints
	row.TotalPoints = entry.Total - entry.EventTotal + gwPoints
	return row
}
