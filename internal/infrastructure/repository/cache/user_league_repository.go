package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/fplhq/minileague/internal/domain/membership"
	basecache "github.com/fplhq/minileague/internal/platform/cache"
)

// UserLeagueRepository is a read-through cache over a membership repository.
// Listings are the hot path behind the dashboard sidebar; writes invalidate
// the affected user's entry so the next list is served fresh.
type UserLeagueRepository struct {
	next  membership.Repository
	store *basecache.Store

	mu           sync.Mutex
	usersByLeague map[int64]map[string]struct{}
}

func NewUserLeagueRepository(next membership.Repository, store *basecache.Store) *UserLeagueRepository {
	return &UserLeagueRepository{
		next:          next,
		store:         store,
		usersByLeague: make(map[int64]map[string]struct{}),
	}
}

func listKey(userID string) string {
	return "user-leagues:" + userID
}

func (r *UserLeagueRepository) Upsert(ctx context.Context, item membership.UserLeague) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.invalidateUser(ctx, item.UserID)
	return nil
}

func (r *UserLeagueRepository) ListByUser(ctx context.Context, userID string) ([]membership.UserLeague, error) {
	value, err := r.store.GetOrLoad(ctx, listKey(userID), func(ctx context.Context) (any, error) {
		items, err := r.next.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.index(userID, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items, ok := value.([]membership.UserLeague)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value for user=%s", userID)
	}

	// Callers mutate the returned slice while healing names.
	out := make([]membership.UserLeague, len(items))
	copy(out, items)
	return out, nil
}

func (r *UserLeagueRepository) Delete(ctx context.Context, userID string, leagueID int64) error {
	if err := r.next.Delete(ctx, userID, leagueID); err != nil {
		return err
	}
	r.invalidateUser(ctx, userID)
	return nil
}

// CountByLeague always goes to the source: the purge-after-removal decision
// must not act on a stale count.
func (r *UserLeagueRepository) CountByLeague(ctx context.Context, leagueID int64) (int, error) {
	return r.next.CountByLeague(ctx, leagueID)
}

func (r *UserLeagueRepository) UpdateLeagueName(ctx context.Context, leagueID int64, name string) error {
	if err := r.next.UpdateLeagueName(ctx, leagueID, name); err != nil {
		return err
	}
	r.invalidateLeague(ctx, leagueID)
	return nil
}

// index remembers which users' cached listings contain each league so a
// league-wide rename can drop exactly those entries.
func (r *UserLeagueRepository) index(userID string, items []membership.UserLeague) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		users, ok := r.usersByLeague[item.LeagueID]
		if !ok {
			users = make(map[string]struct{})
			r.usersByLeague[item.LeagueID] = users
		}
		users[userID] = struct{}{}
	}
}

func (r *UserLeagueRepository) invalidateUser(ctx context.Context, userID string) {
	r.store.Delete(ctx, listKey(userID))
}

func (r *UserLeagueRepository) invalidateLeague(ctx context.Context, leagueID int64) {
	r.mu.Lock()
	users := r.usersByLeague[leagueID]
	delete(r.usersByLeague, leagueID)
	r.mu.Unlock()

	for userID := range users {
		r.store.Delete(ctx, listKey(userID))
	}
}
