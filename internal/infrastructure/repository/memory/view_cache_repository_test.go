package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fplhq/minileague/internal/domain/view"
)

func TestViewCacheRepository_UpsertIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewViewCacheRepository()
	ctx := context.Background()

	first := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return first })
	if err := repo.Upsert(ctx, 42, 3, view.KindLeague, json.RawMessage(`{"v":1}`), false); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := first.Add(30 * time.Second)
	repo.SetClock(func() time.Time { return second })
	if err := repo.Upsert(ctx, 42, 3, view.KindLeague, json.RawMessage(`{"v":2}`), false); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if repo.Len() != 1 {
		t.Fatalf("expected exactly one row, got %d", repo.Len())
	}

	stored, found, err := repo.Get(ctx, 42, 3, view.KindLeague)
	if err != nil || !found {
		t.Fatalf("expected stored row, found=%v err=%v", found, err)
	}
	if string(stored.Payload) != `{"v":2}` {
		t.Fatalf("second write must replace the payload, got %s", stored.Payload)
	}
	if stored.FetchedAt.Before(first) {
		t.Fatalf("fetched_at must not move backwards: %v < %v", stored.FetchedAt, first)
	}
	if !stored.FetchedAt.Equal(second) {
		t.Fatalf("fetched_at must track the latest write, got %v want %v", stored.FetchedAt, second)
	}
}

func TestViewCacheRepository_UpsertKeepsFinalFlag(t *testing.T) {
	t.Parallel()

	repo := NewViewCacheRepository()
	ctx := context.Background()

	if err := repo.Upsert(ctx, 42, 3, view.KindLeague, json.RawMessage(`{"v":1}`), true); err != nil {
		t.Fatalf("final upsert: %v", err)
	}
	if err := repo.Upsert(ctx, 42, 3, view.KindLeague, json.RawMessage(`{"v":2}`), false); err != nil {
		t.Fatalf("non-final upsert: %v", err)
	}

	stored, found, err := repo.Get(ctx, 42, 3, view.KindLeague)
	if err != nil || !found {
		t.Fatalf("expected stored row, found=%v err=%v", found, err)
	}
	if !stored.IsFinal {
		t.Fatal("a non-final write must not demote a final row")
	}
	if string(stored.Payload) != `{"v":2}` {
		t.Fatalf("payload still updates on a guarded write, got %s", stored.Payload)
	}
}
