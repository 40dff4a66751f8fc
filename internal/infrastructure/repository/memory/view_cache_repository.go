package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/fplhq/minileague/internal/domain/view"
)

type viewKey struct {
	leagueID int64
	gameweek int
	kind     view.Kind
}

// ViewCacheRepository is an in-memory view.Repository used by tests and local
// runs without a database.
type ViewCacheRepository struct {
	mu      sync.RWMutex
	entries map[viewKey]view.CachedPayload
	now     func() time.Time
}

func NewViewCacheRepository() *ViewCacheRepository {
	return &ViewCacheRepository{
		entries: make(map[viewKey]view.CachedPayload),
		now:     time.Now,
	}
}

// SetClock overrides the repository clock for tests.
func (r *ViewCacheRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *ViewCacheRepository) Get(_ context.Context, leagueID int64, gameweek int, kind view.Kind) (view.CachedPayload, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.entries[viewKey{leagueID: leagueID, gameweek: gameweek, kind: kind}]
	if !ok {
		return view.CachedPayload{}, false, nil
	}
	return cached, true, nil
}

func (r *ViewCacheRepository) GetRange(_ context.Context, leagueID int64, kind view.Kind, fromGw, toGw int) ([]view.CachedPayload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]view.CachedPayload, 0)
	for key, cached := range r.entries {
		if key.leagueID == leagueID && key.kind == kind && key.gameweek >= fromGw && key.gameweek <= toGw {
			out = append(out, cached)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gameweek < out[j].Gameweek })
	return out, nil
}

func (r *ViewCacheRepository) Upsert(_ context.Context, leagueID int64, gameweek int, kind view.Kind, payload json.RawMessage, isFinal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)

	key := viewKey{leagueID: leagueID, gameweek: gameweek, kind: kind}
	// A final row is never demoted, matching the postgres upsert.
	if existing, ok := r.entries[key]; ok && existing.IsFinal {
		isFinal = true
	}
	r.entries[key] = view.CachedPayload{
		LeagueID:  leagueID,
		Gameweek:  gameweek,
		Kind:      kind,
		Payload:   stored,
		FetchedAt: r.now().UTC(),
		IsFinal:   isFinal,
	}
	return nil
}

func (r *ViewCacheRepository) DeleteByLeague(_ context.Context, leagueID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.entries {
		if key.leagueID == leagueID {
			delete(r.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored rows. Test helper.
func (r *ViewCacheRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
