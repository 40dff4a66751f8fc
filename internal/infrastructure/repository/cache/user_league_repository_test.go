package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fplhq/minileague/internal/domain/membership"
	"github.com/fplhq/minileague/internal/infrastructure/repository/memory"
	basecache "github.com/fplhq/minileague/internal/platform/cache"
)

type countingRepo struct {
	membership.Repository
	lists atomic.Int64
}

func (r *countingRepo) ListByUser(ctx context.Context, userID string) ([]membership.UserLeague, error) {
	r.lists.Add(1)
	return r.Repository.ListByUser(ctx, userID)
}

func newCachedRepo(t *testing.T) (*UserLeagueRepository, *countingRepo) {
	t.Helper()
	next := &countingRepo{Repository: memory.NewUserLeagueRepository()}
	return NewUserLeagueRepository(next, basecache.NewStore(time.Minute)), next
}

func TestListByUser_ServedFromCache(t *testing.T) {
	t.Parallel()

	repo, next := newCachedRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, membership.UserLeague{UserID: "user-1", LeagueID: 42, LeagueName: "Office League"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for i := 0; i < 3; i++ {
		items, err := repo.ListByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 1 || items[0].LeagueName != "Office League" {
			t.Fatalf("unexpected items: %+v", items)
		}
	}

	if got := next.lists.Load(); got != 1 {
		t.Fatalf("expected a single source list, got %d", got)
	}
}

func TestUpsert_InvalidatesListing(t *testing.T) {
	t.Parallel()

	repo, next := newCachedRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, membership.UserLeague{UserID: "user-1", LeagueID: 42, LeagueName: "Office League"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := repo.ListByUser(ctx, "user-1"); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := repo.Upsert(ctx, membership.UserLeague{UserID: "user-1", LeagueID: 77, LeagueName: "Second League"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	items, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 leagues after invalidation, got %d", len(items))
	}
	if got := next.lists.Load(); got != 2 {
		t.Fatalf("expected 2 source lists, got %d", got)
	}
}

func TestUpdateLeagueName_InvalidatesEveryHolder(t *testing.T) {
	t.Parallel()

	repo, _ := newCachedRepo(t)
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2"} {
		if err := repo.Upsert(ctx, membership.UserLeague{UserID: userID, LeagueID: 42, LeagueName: membership.PlaceholderLeagueName}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if _, err := repo.ListByUser(ctx, userID); err != nil {
			t.Fatalf("list: %v", err)
		}
	}

	if err := repo.UpdateLeagueName(ctx, 42, "Office League"); err != nil {
		t.Fatalf("update name: %v", err)
	}

	for _, userID := range []string{"user-1", "user-2"} {
		items, err := repo.ListByUser(ctx, userID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 1 || items[0].LeagueName != "Office League" {
			t.Fatalf("user %s still sees stale name: %+v", userID, items)
		}
	}
}

func TestDelete_InvalidatesListing(t *testing.T) {
	t.Parallel()

	repo, _ := newCachedRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, membership.UserLeague{UserID: "user-1", LeagueID: 42, LeagueName: "Office League"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := repo.ListByUser(ctx, "user-1"); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := repo.Delete(ctx, "user-1", 42); err != nil {
		t.Fatalf("delete: %v", err)
	}

	items, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty listing after delete, got %+v", items)
	}

	count, err := repo.CountByLeague(ctx, 42)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero holders, got %d", count)
	}
}
