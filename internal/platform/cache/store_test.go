package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(time.Minute)

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	s.Set(ctx, "k", 7)
	got, ok := s.Get(ctx, "k")
	if !ok || got.(int) != 7 {
		t.Fatalf("expected 7, got %v ok=%v", got, ok)
	}

	s.Delete(ctx, "k")
	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestStore_GetOrLoad_SingleLoaderUnderConcurrency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(time.Minute)
	var loads int32

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.GetOrLoad(ctx, "bootstrap", func(context.Context) (any, error) {
				atomic.AddInt32(&loads, 1)
				time.Sleep(10 * time.Millisecond)
				return "payload", nil
			})
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Fatalf("expected loader to run once, ran %d times", got)
	}
}

func TestStore_GetOrLoad_ErrorNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(time.Minute)

	wantErr := errors.New("upstream down")
	if _, err := s.GetOrLoad(ctx, "k", func(context.Context) (any, error) {
		return nil, wantErr
	}); !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}

	got, err := s.GetOrLoad(ctx, "k", func(context.Context) (any, error) {
		return "fresh", nil
	})
	if err != nil || got.(string) != "fresh" {
		t.Fatalf("expected fresh load after error, got %v err=%v", got, err)
	}
}
