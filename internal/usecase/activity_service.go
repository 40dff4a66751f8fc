package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

// ActivityService scores how much each manager's activity (transfers and
// chips) has influenced their season so far. Impact is accumulated gameweek by
// gameweek from 1 up to the requested one, so per-gameweek context (chip
// played, transfer cost) applies to the right week.
type ActivityService struct {
	provider SportsProvider
	logger   *logging.Logger
	metrics  observability.Metrics
}

func NewActivityService(provider SportsProvider, logger *logging.Logger, metrics observability.Metrics) *ActivityService {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &ActivityService{provider: provider, logger: logger, metrics: metrics}
}

func (s *ActivityService) BuildActivityView(ctx context.Context, leagueID int64, gameweek int) (ActivityImpactView, error) {
	ctx, span := startUsecaseSpan(ctx, "ActivityService.BuildActivityView")
	defer span.End()

	standings, err := s.provider.LeagueStandings(ctx, leagueID)
	if err != nil {
		return ActivityImpactView{}, fmt.Errorf("league standings league=%d: %w", leagueID, err)
	}
	if standings == nil {
		return ActivityImpactView{}, fmt.Errorf("%w: standings temporarily unavailable", ErrDependencyUnavailable)
	}

	rows, err := s.ComputeImpact(ctx, standings.Entries, gameweek)
	if err != nil {
		return ActivityImpactView{}, err
	}

	return ActivityImpactView{
		LeagueID: leagueID,
		Gameweek: gameweek,
		Rows:     rows,
	}, nil
}

type entryImpact struct {
	row      ActivityRow
	baseline int
}

// ComputeImpact walks each entry's season sequentially through gameweek 1 up
// to targetGw. Movement compares the ranking at targetGw against the ranking
// the same computation produced one gameweek earlier.
func (s *ActivityService) ComputeImpact(ctx context.Context, entries []StandingEntry, targetGw int) ([]ActivityRow, error) {
	ctx, span := startUsecaseSpan(ctx, "ActivityService.ComputeImpact")
	defer span.End()

	if targetGw <= 0 {
		return nil, fmt.Errorf("%w: gameweek must be positive", ErrInvalidInput)
	}
	if len(entries) == 0 {
		return []ActivityRow{}, nil
	}

	// Per-gameweek points are shared across all entries; fetch each week once.
	pointsByGw := make(map[int]map[int64]int, targetGw)
	pointsFor := func(gw int) map[int64]int {
		if points, ok := pointsByGw[gw]; ok {
			return points
		}
		points, err := s.provider.LivePoints(ctx, gw)
		if err != nil {
			s.logger.WarnContext(ctx, "gameweek points unavailable for impact", "gameweek", gw, "error", err)
			points = nil
		}
		pointsByGw[gw] = points
		return points
	}

	impacts := make([]entryImpact, 0, len(entries))
	for _, entry := range entries {
		impacts = append(impacts, s.computeEntry(ctx, entry, targetGw, pointsFor))
	}

	assignRanks(impacts, func(i entryImpact) int { return i.baseline }, func(i int, rank int) {
		impacts[i].row.PreviousRank = rank
	})
	assignRanks(impacts, func(i entryImpact) int { return i.row.TotalImpact }, func(i int, rank int) {
		impacts[i].row.Rank = rank
	})

	rows := make([]ActivityRow, 0, len(impacts))
	for _, impact := range impacts {
		impact.row.Movement = impact.row.PreviousRank - impact.row.Rank
		rows = append(rows, impact.row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows, nil
}

func (s *ActivityService) computeEntry(ctx context.Context, entry StandingEntry, targetGw int, pointsFor func(int) map[int64]int) entryImpact {
	transfers, err := s.provider.EntryTransfers(ctx, entry.EntryID)
	if err != nil {
		s.logger.WarnContext(ctx, "entry transfers unavailable for impact", "entry_id", entry.EntryID, "error", err)
	}
	transfersByGw := make(map[int][]TransferRecord, len(transfers))
	for _, transfer := range transfers {
		transfersByGw[transfer.Gameweek] = append(transfersByGw[transfer.Gameweek], transfer)
	}

	chips, err := s.provider.EntryChips(ctx, entry.EntryID)
	if err != nil {
		s.logger.WarnContext(ctx, "entry chips unavailable for impact", "entry_id", entry.EntryID, "error", err)
	}
	chipByGw := make(map[int]string, len(chips))
	for _, chip := range chips {
		chipByGw[chip.Gameweek] = chip.Name
	}

	out := entryImpact{row: ActivityRow{EntryID: entry.EntryID, PlayerName: entry.PlayerName}}

	transferTotal, chipTotal := 0, 0
	for gw := 1; gw <= targetGw; gw++ {
		event, err := s.provider.EntryEvent(ctx, entry.EntryID, gw)
		if err != nil {
			s.logger.WarnContext(ctx, "entry event unavailable for impact", "entry_id", entry.EntryID, "gameweek", gw, "error", err)
		}

		if event != nil {
			points := pointsFor(gw)
			chip := chipByGw[gw]
			if chip == "" {
				chip = event.ActiveChip
			}

			for _, transfer := range transfersByGw[gw] {
				if points != nil {
					transferTotal += points[transfer.PlayerIn] - points[transfer.PlayerOut]
				}
			}
			// A free hit week charges no transfer cost; the in/out swing
			// still counts for the week it was played.
			if chip != ChipFreeHit {
				transferTotal -= event.TransfersCost
			}

			switch chip {
			case ChipBenchBoost:
				chipTotal += event.PointsOnBench
			case ChipTripleCaptain:
				if points != nil {
					if captainID, ok := captainOf(event.Picks); ok {
						chipTotal += points[captainID]
					}
				}
			}
		}

		// Captured even when this week's fetch degraded; the snapshot one
		// week before target feeds PreviousRank.
		if gw == targetGw-1 {
			out.baseline = transferTotal + chipTotal
		}
	}

	out.row.TransferImpact = transferTotal
	out.row.ChipImpact = chipTotal
	out.row.TotalImpact = transferTotal + chipTotal
	return out
}

func captainOf(picks []PickSlot) (int64, bool) {
	for _, pick := range picks {
		if pick.IsCaptain {
			return pick.PlayerID, true
		}
	}
	return 0, false
}

// assignRanks orders by score descending with entry id ascending as the
// tie-break, then reports each element's rank through set.
func assignRanks(impacts []entryImpact, score func(entryImpact) int, set func(index int, rank int)) {
	order := make([]int, len(impacts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		left, right := impacts[order[a]], impacts[order[b]]
		if score(left) != score(right) {
			return score(left) > score(right)
		}
		return left.row.EntryID < right.row.EntryID
	})
	for rank, index := range order {
		set(index, rank+1)
	}
}
