package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/domain/view"
)

// DashboardService is the read facade behind the view endpoints: it routes a
// view request through the cache policy and rebuilds the payload from the
// aggregators on a miss.
type DashboardService struct {
	provider  SportsProvider
	cache     *ViewCacheService
	standings *StandingsService
	transfers *TransfersService
	activity  *ActivityService
}

func NewDashboardService(
	provider SportsProvider,
	cache *ViewCacheService,
	standings *StandingsService,
	transfers *TransfersService,
	activity *ActivityService,
) *DashboardService {
	return &DashboardService{
		provider:  provider,
		cache:     cache,
		standings: standings,
		transfers: transfers,
		activity:  activity,
	}
}

type ViewRequest struct {
	LeagueID  int64
	Gameweek  int
	CurrentGw int
	Kind      view.Kind
}

func (s *DashboardService) View(ctx context.Context, req ViewRequest) (json.RawMessage, error) {
	ctx, span := startUsecaseSpan(ctx, "DashboardService.View")
	defer span.End()

	if req.LeagueID <= 0 || req.Gameweek <= 0 || req.CurrentGw <= 0 {
		return nil, fmt.Errorf("%w: league id and gameweeks must be positive", ErrInvalidInput)
	}

	builder, err := s.builderFor(req)
	if err != nil {
		return nil, err
	}

	return s.cache.Serve(ctx, req.LeagueID, req.Gameweek, s.gameweekLocked(ctx, req.Gameweek), req.Kind, builder)
}

// gameweekLocked asks the upstream bootstrap whether the gameweek's data is
// final. Client-supplied gameweek numbers never decide finality; a degraded
// bootstrap fetch leaves the row non-final so a later pass can still lock it.
func (s *DashboardService) gameweekLocked(ctx context.Context, gameweek int) bool {
	bootstrap, err := s.provider.Bootstrap(ctx)
	if err != nil {
		return false
	}
	return bootstrap.GameweekLocked(gameweek)
}

func (s *DashboardService) builderFor(req ViewRequest) (ViewBuilder, error) {
	switch req.Kind {
	case view.KindLeague:
		return func(ctx context.Context) (json.RawMessage, error) {
			model, err := s.standings.BuildLeagueView(ctx, req.LeagueID, req.Gameweek, req.CurrentGw)
			if err != nil {
				return nil, err
			}
			return marshalView(model)
		}, nil
	case view.KindTransfers:
		return func(ctx context.Context) (json.RawMessage, error) {
			model, err := s.transfers.BuildTransfersView(ctx, req.LeagueID, req.Gameweek)
			if err != nil {
				return nil, err
			}
			return marshalView(model)
		}, nil
	case view.KindChips:
		return func(ctx context.Context) (json.RawMessage, error) {
			model, err := s.transfers.BuildChipsView(ctx, req.LeagueID, req.Gameweek)
			if err != nil {
				return nil, err
			}
			return marshalView(model)
		}, nil
	case view.KindActivityImpact:
		return func(ctx context.Context) (json.RawMessage, error) {
			model, err := s.activity.BuildActivityView(ctx, req.LeagueID, req.Gameweek)
			if err != nil {
				return nil, err
			}
			return marshalView(model)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidInput, req.Kind)
	}
}

func marshalView(model any) (json.RawMessage, error) {
	raw, err := sonic.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("marshal view payload: %w", err)
	}
	return raw, nil
}
