package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fplhq/minileague/internal/domain/membership"
)

type userLeagueKey struct {
	userID   string
	leagueID int64
}

// UserLeagueRepository is an in-memory membership.Repository used by tests and
// local runs without a database.
type UserLeagueRepository struct {
	mu      sync.Mutex
	entries map[userLeagueKey]membership.UserLeague
	now     func() time.Time
}

func NewUserLeagueRepository() *UserLeagueRepository {
	return &UserLeagueRepository{
		entries: make(map[userLeagueKey]membership.UserLeague),
		now:     time.Now,
	}
}

func (r *UserLeagueRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *UserLeagueRepository) Upsert(_ context.Context, item membership.UserLeague) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userLeagueKey{userID: item.UserID, leagueID: item.LeagueID}
	now := r.now().UTC()

	name := strings.TrimSpace(item.LeagueName)
	if name == "" {
		name = membership.PlaceholderLeagueName
	}

	existing, ok := r.entries[key]
	if ok {
		existing.LeagueName = name
		existing.UpdatedAt = now
		r.entries[key] = existing
		return nil
	}

	r.entries[key] = membership.UserLeague{
		UserID:     item.UserID,
		LeagueID:   item.LeagueID,
		LeagueName: name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

func (r *UserLeagueRepository) ListByUser(_ context.Context, userID string) ([]membership.UserLeague, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]membership.UserLeague, 0)
	for key, item := range r.entries {
		if key.userID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].LeagueID < out[j].LeagueID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *UserLeagueRepository) Delete(_ context.Context, userID string, leagueID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, userLeagueKey{userID: userID, leagueID: leagueID})
	return nil
}

func (r *UserLeagueRepository) CountByLeague(_ context.Context, leagueID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key := range r.entries {
		if key.leagueID == leagueID {
			count++
		}
	}
	return count, nil
}

func (r *UserLeagueRepository) UpdateLeagueName(_ context.Context, leagueID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	now := r.now().UTC()
	for key, item := range r.entries {
		if key.leagueID == leagueID {
			item.LeagueName = name
			item.UpdatedAt = now
			r.entries[key] = item
		}
	}
	return nil
}
