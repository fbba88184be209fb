package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joy-dx/lockablemap"
	"github.com/rs/zerolog"

	"github.com/shopuda/shopclient/faults"
)

type EntryState string

const (
	StateFresh   EntryState = "fresh"
	StateStale   EntryState = "stale"
	StateLoading EntryState = "loading"
	StateError   EntryState = "error"
)

// Notification is delivered to subscribers of a key on every state
// transition. Err is set on error transitions and on optimistic rollbacks.
type Notification struct {
	Key   string     `json:"key"`
	State EntryState `json:"state"`
	Err   error      `json:"-"`
}

// FetchFunc loads the server value for a key of the registered kind.
type FetchFunc func(ctx context.Context, key Key) (any, error)

type entry struct {
	key       Key
	value     any
	lastFresh any
	err       error
	fetchedAt time.Time
	state     EntryState
	// ready is non-nil while the entry is Loading; closed when it settles.
	ready chan struct{}
	// pendingStale records an invalidation that landed while a fetch was in
	// flight: the fetched value predates the mutation, so the entry settles
	// Stale instead of Fresh.
	pendingStale bool
}

// Cache is the keyed store of server-derived entities. A key is Fresh only
// while no declared mutation has staled it; reads on anything else refetch
// through the registered fetcher, and concurrent readers of a Loading key
// share the in-flight fetch.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	fetchers map[Kind]FetchFunc

	// status mirrors the latest notification per key for State() snapshots.
	status lockablemap.LockableMap[string, Notification]

	muListeners    sync.Mutex
	listenersByKey map[string][]chan Notification

	log zerolog.Logger
}

func New(log zerolog.Logger) *Cache {
	return &Cache{
		entries:        make(map[string]*entry),
		fetchers:       make(map[Kind]FetchFunc),
		status:         *lockablemap.NewLockableMap[string, Notification](),
		listenersByKey: make(map[string][]chan Notification),
		log:            log,
	}
}

func (c *Cache) RegisterFetcher(kind Kind, fn FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchers[kind] = fn
}

// Read returns the cached value when Fresh, otherwise fetches. Loading keys
// are awaited, not fetched twice.
func (c *Cache) Read(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	e := c.entries[key.String()]

	if e != nil && e.state == StateFresh {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}

	if e != nil && e.state == StateLoading && e.ready != nil {
		ready := e.ready
		c.mu.Unlock()
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, faults.Cancelled(ctx.Err())
		}
		return c.afterWait(ctx, key)
	}

	fn := c.fetchers[key.Kind]
	if fn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no fetcher registered for kind %q", key.Kind)
	}
	if e == nil {
		e = &entry{key: key}
		c.entries[key.String()] = e
	}
	e.state = StateLoading
	e.err = nil
	ready := make(chan struct{})
	e.ready = ready
	c.mu.Unlock()
	c.publish(key, StateLoading, nil)

	v, err := fn(ctx, key)

	c.mu.Lock()
	if e.ready != ready {
		// A mutation reconciled this key while we were fetching; its value
		// is newer than ours.
		v2, errStale := e.value, e.err
		state := e.state
		c.mu.Unlock()
		if state == StateFresh {
			return v2, nil
		}
		return v2, errStale
	}
	e.ready = nil
	if err != nil {
		e.state = StateError
		e.err = err
		e.pendingStale = false
		c.mu.Unlock()
		close(ready)
		c.publish(key, StateError, err)
		return nil, err
	}
	e.value = v
	e.lastFresh = v
	e.err = nil
	e.fetchedAt = time.Now()
	if e.pendingStale {
		// A mutation invalidated this kind mid-fetch; the value we just got
		// predates it. Settle Stale so the next read refetches.
		e.pendingStale = false
		e.state = StateStale
		c.mu.Unlock()
		close(ready)
		c.publish(key, StateStale, nil)
		c.refetchSubscribed(ctx, []Key{key})
		return v, nil
	}
	e.state = StateFresh
	c.mu.Unlock()
	close(ready)
	c.publish(key, StateFresh, nil)
	return v, nil
}

// afterWait resolves a read that waited on another caller's fetch.
func (c *Cache) afterWait(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()
	e := c.entries[key.String()]
	if e == nil {
		c.mu.Unlock()
		return c.Read(ctx, key)
	}
	switch e.state {
	case StateFresh:
		v := e.value
		c.mu.Unlock()
		return v, nil
	case StateError:
		err := e.err
		c.mu.Unlock()
		return nil, err
	default:
		// Staled or re-loading between the close and this lock; retry.
		c.mu.Unlock()
		return c.Read(ctx, key)
	}
}

// Invalidate applies the declared rule for a mutation: every entry of a
// staled kind is marked Stale, and staled keys with active subscribers are
// refetched eagerly. Returns the staled keys.
func (c *Cache) Invalidate(ctx context.Context, mut Mutation) []Key {
	kinds := StaleKinds(mut)

	c.mu.Lock()
	var staled []Key
	for _, e := range c.entries {
		if !kindIn(kinds, e.key.Kind) {
			continue
		}
		// An in-flight fetch settles on its own, but its value predates this
		// mutation; flag it so it settles Stale instead of Fresh.
		if e.state == StateLoading {
			e.pendingStale = true
			continue
		}
		e.state = StateStale
		staled = append(staled, e.key)
	}
	c.mu.Unlock()

	for _, key := range staled {
		c.publish(key, StateStale, nil)
	}
	c.refetchSubscribed(ctx, staled)
	return staled
}

// Reconcile applies a successful mutation outcome: the declared invalidation
// rule runs, except the entity the server returned in the mutation response
// is stored Fresh directly instead of being staled and refetched.
func (c *Cache) Reconcile(ctx context.Context, mut Mutation, key Key, value any) {
	kinds := StaleKinds(mut)

	c.mu.Lock()
	var staled []Key
	for _, e := range c.entries {
		if e.key == key || !kindIn(kinds, e.key.Kind) {
			continue
		}
		if e.state == StateLoading {
			e.pendingStale = true
			continue
		}
		e.state = StateStale
		staled = append(staled, e.key)
	}
	c.mu.Unlock()

	c.ApplyFresh(key, value)
	for _, k := range staled {
		c.publish(k, StateStale, nil)
	}
	c.refetchSubscribed(ctx, staled)
}

// InvalidateKey stales a single entry outside the mutation table, e.g. the
// product a stock conflict was reported for.
func (c *Cache) InvalidateKey(ctx context.Context, key Key) {
	c.mu.Lock()
	e := c.entries[key.String()]
	if e == nil {
		c.mu.Unlock()
		return
	}
	if e.state == StateLoading {
		e.pendingStale = true
		c.mu.Unlock()
		return
	}
	e.state = StateStale
	c.mu.Unlock()

	c.publish(key, StateStale, nil)
	c.refetchSubscribed(ctx, []Key{key})
}

func (c *Cache) refetchSubscribed(ctx context.Context, keys []Key) {
	base := context.WithoutCancel(ctx)
	for _, key := range keys {
		if !c.hasListeners(key) {
			continue
		}
		go func(k Key) {
			if _, err := c.Read(base, k); err != nil {
				c.log.Debug().Err(err).Str("key", k.String()).Msg("eager refetch failed")
			}
		}(key)
	}
}

// ApplyFresh stores a server-confirmed value, superseding any in-flight
// fetch. Mutating endpoints return the updated entity, so reconciliation
// needs no follow-up read.
func (c *Cache) ApplyFresh(key Key, value any) {
	c.mu.Lock()
	e := c.entries[key.String()]
	if e == nil {
		e = &entry{key: key}
		c.entries[key.String()] = e
	}
	if e.ready != nil {
		close(e.ready)
		e.ready = nil
	}
	e.value = value
	e.lastFresh = value
	e.err = nil
	e.fetchedAt = time.Now()
	e.state = StateFresh
	// A server-confirmed value postdates any mutation flagged mid-fetch.
	e.pendingStale = false
	c.mu.Unlock()

	c.publish(key, StateFresh, nil)
}

// ApplyOptimistic shows a locally computed provisional value, marked Loading,
// until Confirm or Rollback settles it.
func (c *Cache) ApplyOptimistic(key Key, provisional any) {
	c.mu.Lock()
	e := c.entries[key.String()]
	if e == nil {
		e = &entry{key: key}
		c.entries[key.String()] = e
	}
	e.value = provisional
	e.state = StateLoading
	if e.ready == nil {
		e.ready = make(chan struct{})
	}
	c.mu.Unlock()

	c.publish(key, StateLoading, nil)
}

// Confirm replaces an optimistic value with the server-confirmed one.
func (c *Cache) Confirm(key Key, value any) {
	c.ApplyFresh(key, value)
}

// Rollback restores the last server-confirmed value after a rejected
// optimistic mutation and raises the classified failure to subscribers.
func (c *Cache) Rollback(key Key, cause error) {
	c.mu.Lock()
	e := c.entries[key.String()]
	if e == nil {
		c.mu.Unlock()
		return
	}
	if e.ready != nil {
		close(e.ready)
		e.ready = nil
	}
	if e.lastFresh == nil {
		delete(c.entries, key.String())
		c.mu.Unlock()
		c.publish(key, StateError, cause)
		return
	}
	e.value = e.lastFresh
	e.err = nil
	e.state = StateFresh
	// The restored value predates any mutation flagged while the optimistic
	// update was pending.
	if e.pendingStale {
		e.pendingStale = false
		e.state = StateStale
	}
	restored := e.state
	c.mu.Unlock()

	c.publish(key, StateError, cause)
	c.publish(key, restored, nil)
}

// Peek reports the current value and state without triggering a fetch.
func (c *Cache) Peek(key Key) (any, EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key.String()]
	if e == nil {
		return nil, "", false
	}
	return e.value, e.state, true
}

// Reset drops every entry, e.g. on login or logout when all user-scoped data
// changes identity.
func (c *Cache) Reset() {
	c.mu.Lock()
	var settled []Key
	for ks, e := range c.entries {
		if e.ready != nil {
			close(e.ready)
			e.ready = nil
		}
		settled = append(settled, e.key)
		delete(c.entries, ks)
	}
	c.mu.Unlock()

	for _, key := range settled {
		c.publish(key, StateStale, nil)
	}
}

// Statuses snapshots the latest notification per key.
func (c *Cache) Statuses() map[string]Notification {
	return c.status.GetAll()
}

func kindIn(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
