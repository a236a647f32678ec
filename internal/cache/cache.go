// Query cache for the persons list. One keyed resource, one fetch in flight
// at a time, invalidations coalesced into a single follow-up refetch.
package cache

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Key names the single resource the cache holds.
const Key = "persons"

// State is the lifecycle of the cached resource.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Snapshot is an immutable view of the cache. Persons is always a complete
// list: while a refetch runs it is the previous list, never a partial one.
type Snapshot struct {
	State   State
	Persons []types.Person
	Err     error
}

// IsLoading reports whether a fetch is in flight.
func (s Snapshot) IsLoading() bool { return s.State == StateLoading }

// Lister is the read half of types.PersonAPI.
type Lister interface {
	List(ctx context.Context) ([]types.Person, error)
}

// Cache holds the last fetched persons list.
type Cache struct {
	lister Lister
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	snap     Snapshot
	inflight bool
	pending  bool
	closed   bool
	fetches  int
	version  uint64
	idle     chan struct{}
	subs     map[int]func(Snapshot)
	nextSub  int

	notifyMu  sync.Mutex
	delivered uint64
}

// New returns an idle cache reading through l. Call Close at teardown.
func New(l Lister) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Cache{
		lister: l,
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Fetches returns how many list requests the cache has issued.
func (c *Cache) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Load starts the first fetch. It is a no-op unless the cache is idle.
func (c *Cache) Load() {
	c.mu.Lock()
	if c.closed || c.snap.State != StateIdle {
		c.mu.Unlock()
		return
	}
	snap, v := c.startLocked()
	c.mu.Unlock()
	c.publish(snap, v)
}

// Invalidate marks the list stale and refetches it from any state. If a
// fetch is already in flight its result is discarded and exactly one more
// fetch follows, however many invalidations arrive meanwhile.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.inflight {
		c.pending = true
		c.mu.Unlock()
		return
	}
	snap, v := c.startLocked()
	c.mu.Unlock()
	c.publish(snap, v)
}

// Await blocks until no fetch is in flight and its result has been
// delivered to subscribers, then returns the current snapshot.
func (c *Cache) Await(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn is called outside the cache lock, in change order. fn must
// not call Load or Invalidate synchronously.
func (c *Cache) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops the cache. An in-flight fetch is abandoned and its result is
// never published.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subs = make(map[int]func(Snapshot))
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// startLocked enters loading and launches the fetch loop. Caller holds mu.
func (c *Cache) startLocked() (Snapshot, uint64) {
	c.inflight = true
	c.fetches++
	c.idle = make(chan struct{})
	c.snap = Snapshot{State: StateLoading, Persons: c.snap.Persons}
	c.version++
	c.wg.Add(1)
	go c.run(c.idle)
	return c.snap, c.version
}

func (c *Cache) run(idle chan struct{}) {
	defer c.wg.Done()
	for {
		persons, err := c.lister.List(c.ctx)

		c.mu.Lock()
		if c.closed {
			c.inflight = false
			close(idle)
			c.mu.Unlock()
			return
		}
		if c.pending {
			c.pending = false
			c.fetches++
			c.mu.Unlock()
			continue
		}
		if err != nil {
			c.snap = Snapshot{State: StateError, Persons: c.snap.Persons, Err: err}
		} else {
			if persons == nil {
				persons = []types.Person{}
			}
			c.snap = Snapshot{State: StateLoaded, Persons: persons}
		}
		c.inflight = false
		c.version++
		snap, v := c.snap, c.version
		c.mu.Unlock()

		c.publish(snap, v)
		close(idle)
		return
	}
}

// publish delivers snap to subscribers unless a newer version already went
// out.
func (c *Cache) publish(snap Snapshot, v uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if v <= c.delivered {
		return
	}
	c.delivered = v

	c.mu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
