package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

// TransfersService builds the transfers and chips views: per-manager activity
// for one gameweek with player ids resolved to display names.
type TransfersService struct {
	provider SportsProvider
	logger   *logging.Logger
	metrics  observability.Metrics
}

func NewTransfersService(provider SportsProvider, logger *logging.Logger, metrics observability.Metrics) *TransfersService {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &TransfersService{provider: provider, logger: logger, metrics: metrics}
}

func (s *TransfersService) BuildTransfersView(ctx context.Context, leagueID int64, gameweek int) (TransfersView, error) {
	ctx, span := startUsecaseSpan(ctx, "TransfersService.BuildTransfersView")
	defer span.End()

	standings, bootstrap, err := s.fetchLeagueContext(ctx, leagueID)
	if err != nil {
		return TransfersView{}, err
	}

	out := TransfersView{LeagueID: leagueID, Gameweek: gameweek, Rows: []TransferRow{}}
	for _, entry := range standings.Entries {
		transfers, err := s.provider.EntryTransfers(ctx, entry.EntryID)
		if err != nil {
			s.logger.WarnContext(ctx, "entry transfers unavailable", "entry_id", entry.EntryID, "error", err)
			continue
		}
		for _, transfer := range transfers {
			if transfer.Gameweek != gameweek {
				continue
			}
			out.Rows = append(out.Rows, TransferRow{
				EntryID:       entry.EntryID,
				PlayerName:    entry.PlayerName,
				PlayerIn:      bootstrap.PlayerName(transfer.PlayerIn),
				PlayerOut:     bootstrap.PlayerName(transfer.PlayerOut),
				TransferredAt: transfer.Time,
			})
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].EntryID < out.Rows[j].EntryID })
	return out, nil
}

// BuildChipsView resolves each played chip for the gameweek. The captain name
// on a triple-captain row needs the entry's picks; when that fetch degrades
// the name stays empty and the cache layer treats the row as incomplete on
// later reads.
func (s *TransfersService) BuildChipsView(ctx context.Context, leagueID int64, gameweek int) (ChipsView, error) {
	ctx, span := startUsecaseSpan(ctx, "TransfersService.BuildChipsView")
	defer span.End()

	standings, bootstrap, err := s.fetchLeagueContext(ctx, leagueID)
	if err != nil {
		return ChipsView{}, err
	}

	out := ChipsView{LeagueID: leagueID, Gameweek: gameweek, Rows: []ChipRow{}}
	for _, entry := range standings.Entries {
		chips, err := s.provider.EntryChips(ctx, entry.EntryID)
		if err != nil {
			s.logger.WarnContext(ctx, "entry chips unavailable", "entry_id", entry.EntryID, "error", err)
			continue
		}
		for _, chip := range chips {
			if chip.Gameweek != gameweek {
				continue
			}
			row := ChipRow{
				EntryID:    entry.EntryID,
				PlayerName: entry.PlayerName,
				Chip:       chip.Name,
			}
			if chip.Name == ChipTripleCaptain {
				row.CaptainName = s.captainName(ctx, bootstrap, entry.EntryID, gameweek)
			}
			out.Rows = append(out.Rows, row)
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].EntryID < out.Rows[j].EntryID })
	return out, nil
}

func (s *TransfersService) captainName(ctx context.Context, bootstrap *Bootstrap, entryID int64, gameweek int) string {
	event, err := s.provider.EntryEvent(ctx, entryID, gameweek)
	if err != nil || event == nil {
		if err != nil {
			s.logger.WarnContext(ctx, "entry picks unavailable for captain resolution", "entry_id", entryID, "gameweek", gameweek, "error", err)
		}
		return ""
	}
	captainID, ok := captainOf(event.Picks)
	if !ok {
		return ""
	}
	return bootstrap.PlayerName(captainID)
}

func (s *TransfersService) fetchLeagueContext(ctx context.Context, leagueID int64) (*LeagueStandings, *Bootstrap, error) {
	standings, err := s.provider.LeagueStandings(ctx, leagueID)
	if err != nil {
		return nil, nil, fmt.Errorf("league standings league=%d: %w", leagueID, err)
	}
	if standings == nil {
		return nil, nil, fmt.Errorf("%w: standings temporarily unavailable", ErrDependencyUnavailable)
	}

	bootstrap, err := s.provider.Bootstrap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	// A nil bootstrap still renders; names fall back to "Unknown".
	return standings, bootstrap, nil
}
