package resilience

import "sync"

// Group deduplicates concurrent calls that share a key: the first caller runs
// fn, everyone else waits for and shares the settled result. The key is
// removed once the call settles, so a later call with the same key runs fn
// again. Keys may be secrets (e.g. refresh tokens); they are never logged and
// are dropped as soon as the flight lands.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*flight[V]
}

type flight[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
}

// Do returns fn's value and error, plus shared=true when the result came from
// another caller's in-flight execution.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (V, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*flight[V])
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &flight[V]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.val, c.err, false
}

// InFlight reports whether a call for key is currently executing.
func (g *Group[K, V]) InFlight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}
