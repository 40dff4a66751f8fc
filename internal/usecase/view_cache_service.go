package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/domain/membership"
	"github.com/fplhq/minileague/internal/domain/view"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

const defaultLiveTTL = 60 * time.Second

// ViewBuilder recomputes one view payload from upstream data.
type ViewBuilder func(ctx context.Context) (json.RawMessage, error)

// ViewCacheService decides, per request, whether a cached view row is
// servable or the view must be recomputed and re-stored. Repository failures
// on either side degrade to recompute-and-serve; the system stays correct
// with zero caching.
type ViewCacheService struct {
	views   view.Repository
	members membership.Repository
	liveTTL time.Duration
	logger  *logging.Logger
	metrics observability.Metrics
	now     func() time.Time
}

func NewViewCacheService(
	views view.Repository,
	members membership.Repository,
	liveTTL time.Duration,
	logger *logging.Logger,
	metrics observability.Metrics,
) *ViewCacheService {
	if liveTTL <= 0 {
		liveTTL = defaultLiveTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &ViewCacheService{
		views:   views,
		members: members,
		liveTTL: liveTTL,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Serve returns the payload for one (league, gameweek, view) cell.
//
// locked reports whether the gameweek's data is final upstream (finished and
// data-checked), so it is never derived from client input. A final row serves
// from cache forever and is never demoted by a later write. A non-final row
// serves inside the TTL window while the week is still open; once the week is
// locked it is recomputed and re-stored as final.
func (s *ViewCacheService) Serve(ctx context.Context, leagueID int64, gameweek int, locked bool, kind view.Kind, build ViewBuilder) (json.RawMessage, error) {
	ctx, span := startUsecaseSpan(ctx, "ViewCacheService.Serve")
	defer span.End()

	if build == nil {
		return nil, fmt.Errorf("%w: view builder is required", ErrInvalidInput)
	}

	cached, found, err := s.views.Get(ctx, leagueID, gameweek, kind)
	if err != nil {
		// A broken cache store must never break reads.
		s.logger.WarnContext(ctx, "view cache read failed, serving fresh", "league_id", leagueID, "gameweek", gameweek, "view", string(kind), "error", err)
		found = false
	}

	if found && !s.payloadComplete(ctx, kind, cached.Payload) {
		s.metrics.Inc(observability.MetricCacheRepair, 1)
		found = false
	}

	if found {
		switch {
		case cached.IsFinal:
			s.metrics.Inc(observability.MetricCacheHit, 1)
			return cached.Payload, nil
		case !locked && s.now().Sub(cached.FetchedAt) <= s.liveTTL:
			s.metrics.Inc(observability.MetricCacheHit, 1)
			return cached.Payload, nil
		}
	}

	s.metrics.Inc(observability.MetricCacheMiss, 1)

	payload, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build view league=%d gw=%d view=%s: %w", leagueID, gameweek, kind, err)
	}

	if err := s.views.Upsert(ctx, leagueID, gameweek, kind, payload, locked); err != nil {
		s.logger.WarnContext(ctx, "view cache write failed", "league_id", leagueID, "gameweek", gameweek, "view", string(kind), "error", err)
	}

	return payload, nil
}

// payloadComplete applies the semantic completeness check: a chips row claiming
// triple captain without a resolved captain name was cached from degraded
// upstream data and must be rebuilt, final flag or not.
func (s *ViewCacheService) payloadComplete(ctx context.Context, kind view.Kind, payload json.RawMessage) bool {
	if kind != view.KindChips {
		return true
	}

	var decoded ChipsView
	if err := sonic.Unmarshal(payload, &decoded); err != nil {
		s.logger.WarnContext(ctx, "cached chips payload undecodable, treating as miss", "error", err)
		return false
	}
	for _, row := range decoded.Rows {
		if row.Chip == ChipTripleCaptain && row.CaptainName == "" {
			return false
		}
	}
	return true
}

// PurgeIfUnreferenced drops all cached rows for a league no user references
// anymore. Check and delete are separate statements; a membership added in
// between just repopulates the cache on its next read, so the race is
// acceptable.
func (s *ViewCacheService) PurgeIfUnreferenced(ctx context.Context, leagueID int64) error {
	ctx, span := startUsecaseSpan(ctx, "ViewCacheService.PurgeIfUnreferenced")
	defer span.End()

	count, err := s.members.CountByLeague(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("count league references league=%d: %w", leagueID, err)
	}
	if count > 0 {
		return nil
	}

	if err := s.views.DeleteByLeague(ctx, leagueID); err != nil {
		return fmt.Errorf("purge view cache league=%d: %w", leagueID, err)
	}
	s.logger.InfoContext(ctx, "purged cached views for unreferenced league", "league_id", leagueID)
	return nil
}
