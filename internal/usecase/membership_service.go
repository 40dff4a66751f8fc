package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fplhq/minileague/internal/domain/membership"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

const (
	previewRateLimit       = 10
	previewRateWindowSecs  = 60
	previewRateBucketScope = "league-preview"
)

type LeaguePreview struct {
	LeagueID    int64
	LeagueName  string
	MemberCount int
}

// MembershipService owns the user-to-league links behind "my leagues":
// previewing before adding, adding with a backfill kick, removal with a cache
// purge, and healing placeholder display names.
type MembershipService struct {
	members  membership.Repository
	limiter  membership.RateLimiter
	provider SportsProvider
	cache    *ViewCacheService
	backfill *BackfillService
	logger   *logging.Logger
	metrics  observability.Metrics
	now      func() time.Time
}

func NewMembershipService(
	members membership.Repository,
	limiter membership.RateLimiter,
	provider SportsProvider,
	cache *ViewCacheService,
	backfillService *BackfillService,
	logger *logging.Logger,
	metrics observability.Metrics,
) *MembershipService {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &MembershipService{
		members:  members,
		limiter:  limiter,
		provider: provider,
		cache:    cache,
		backfill: backfillService,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// PreviewLeague resolves a league's name and size before the user commits to
// adding it. The upstream lookup is rate limited per user.
func (s *MembershipService) PreviewLeague(ctx context.Context, userID string, leagueID int64) (LeaguePreview, error) {
	ctx, span := startUsecaseSpan(ctx, "MembershipService.PreviewLeague")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return LeaguePreview{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if leagueID <= 0 {
		return LeaguePreview{}, fmt.Errorf("%w: league id must be positive", ErrInvalidInput)
	}

	if s.limiter != nil {
		bucket := previewRateBucketScope + ":" + userID
		allowed, err := s.limiter.Allow(ctx, bucket, previewRateLimit, previewRateWindowSecs)
		if err != nil {
			// A broken limiter must not block previews.
			s.logger.WarnContext(ctx, "rate limit check failed, allowing preview", "user_id", userID, "error", err)
		} else if !allowed {
			s.metrics.Inc(observability.MetricRateLimitRejected, 1)
			return LeaguePreview{}, fmt.Errorf("%w: too many league previews", ErrRateLimited)
		}
	}

	standings, err := s.provider.LeagueStandings(ctx, leagueID)
	if err != nil {
		return LeaguePreview{}, fmt.Errorf("preview league=%d: %w", leagueID, err)
	}
	if standings == nil {
		return LeaguePreview{}, fmt.Errorf("%w: league lookup temporarily unavailable", ErrDependencyUnavailable)
	}

	return LeaguePreview{
		LeagueID:    leagueID,
		LeagueName:  standings.LeagueName,
		MemberCount: len(standings.Entries),
	}, nil
}

// AddLeague links the league to the user and enqueues a cache backfill. A
// transiently unreachable upstream does not block the add; the name is stored
// as a placeholder and healed on a later list.
func (s *MembershipService) AddLeague(ctx context.Context, userID string, leagueID int64) (membership.UserLeague, error) {
	ctx, span := startUsecaseSpan(ctx, "MembershipService.AddLeague")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return membership.UserLeague{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if leagueID <= 0 {
		return membership.UserLeague{}, fmt.Errorf("%w: league id must be positive", ErrInvalidInput)
	}

	name := membership.PlaceholderLeagueName
	standings, err := s.provider.LeagueStandings(ctx, leagueID)
	if err != nil {
		return membership.UserLeague{}, fmt.Errorf("resolve league=%d: %w", leagueID, err)
	}
	if standings != nil && strings.TrimSpace(standings.LeagueName) != "" {
		name = standings.LeagueName
	}

	item := membership.UserLeague{
		UserID:     userID,
		LeagueID:   leagueID,
		LeagueName: name,
	}
	if err := s.members.Upsert(ctx, item); err != nil {
		return membership.UserLeague{}, fmt.Errorf("add league user=%s league=%d: %w", userID, leagueID, err)
	}

	if s.backfill != nil {
		if _, _, err := s.backfill.Enqueue(ctx, leagueID); err != nil {
			s.logger.WarnContext(ctx, "backfill enqueue on add failed", "league_id", leagueID, "error", err)
		}
	}

	return item, nil
}

// ListLeagues returns the user's leagues, healing placeholder names when the
// upstream answers.
func (s *MembershipService) ListLeagues(ctx context.Context, userID string) ([]membership.UserLeague, error) {
	ctx, span := startUsecaseSpan(ctx, "MembershipService.ListLeagues")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	items, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list leagues user=%s: %w", userID, err)
	}

	for i, item := range items {
		if item.LeagueName != membership.PlaceholderLeagueName {
			continue
		}
		standings, err := s.provider.LeagueStandings(ctx, item.LeagueID)
		if err != nil || standings == nil || strings.TrimSpace(standings.LeagueName) == "" {
			continue
		}
		if err := s.members.UpdateLeagueName(ctx, item.LeagueID, standings.LeagueName); err != nil {
			s.logger.WarnContext(ctx, "league name heal failed", "league_id", item.LeagueID, "error", err)
			continue
		}
		items[i].LeagueName = standings.LeagueName
	}

	return items, nil
}

// RemoveLeague unlinks the league and purges its cached views when no other
// user still references it.
func (s *MembershipService) RemoveLeague(ctx context.Context, userID string, leagueID int64) error {
	ctx, span := startUsecaseSpan(ctx, "MembershipService.RemoveLeague")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	if err := s.members.Delete(ctx, userID, leagueID); err != nil {
		return fmt.Errorf("remove league user=%s league=%d: %w", userID, leagueID, err)
	}

	if s.cache != nil {
		if err := s.cache.PurgeIfUnreferenced(ctx, leagueID); err != nil {
			s.logger.WarnContext(ctx, "cache purge after removal failed", "league_id", leagueID, "error", err)
		}
	}
	return nil
}
