package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/persist"
	"github.com/DNLCodess/ReezBlank/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const hydrateTimeout = 3 * time.Second

type entry struct {
	manager  *Manager
	binding  *persist.Binding
	lastUsed atomic.Int64 // unix nanos
}

func (e *entry) touch(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
}

func (e *entry) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastUsed.Load()))
}

// Registry holds one Manager per shopper session. A session's cart is hydrated
// from the store on first use and written back after every mutation.
//
// The process that holds a session's Manager is its only writer: snapshots
// are written without reading the store first, so a deployment with several
// replicas must route each session to one replica (sticky sessions). Order
// events clear a cart another replica still holds; no other change is
// propagated between replicas.
type Registry struct {
	store        store.Store
	log          *zap.Logger
	writeTimeout time.Duration
	sfg          singleflight.Group // one hydration per session
	now          func() time.Time

	mu       sync.RWMutex
	carts    map[string]*entry
	evicting map[string]chan struct{} // closed once the final snapshot is written
}

func NewRegistry(kv store.Store, log *zap.Logger, writeTimeout time.Duration) *Registry {
	return &Registry{
		store:        kv,
		log:          log,
		writeTimeout: writeTimeout,
		now:          time.Now,
		carts:        make(map[string]*entry),
		evicting:     make(map[string]chan struct{}),
	}
}

// Get returns the session's cart, loading it on first use. A cart that cannot
// be read or decoded starts empty; the failure is logged, never returned.
func (r *Registry) Get(ctx context.Context, sessionID string) *Manager {
	if m, ok := r.lookup(sessionID); ok {
		return m
	}

	v, _, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		if m, ok := r.lookup(sessionID); ok {
			return m, nil
		}
		// an evicted cart is reloaded only after its last write lands
		r.waitEvicted(sessionID)

		// a cancelled request must not leave the session with an empty cart
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
		defer cancel()

		key := persist.KeyFor(sessionID)
		state, err := persist.Hydrate(hctx, r.store, key)
		if err != nil {
			level := r.log.Warn
			if errors.Is(err, persist.ErrMalformedSnapshot) {
				level = r.log.Info
			}
			level("cart hydration failed, starting empty", zap.String("key", key), zap.Error(err))
		}

		m := NewManager(state.Items...)
		e := &entry{
			manager: m,
			binding: persist.Bind(m, r.store, key, r.log, r.writeTimeout),
		}
		e.touch(r.now())

		r.mu.Lock()
		r.carts[sessionID] = e
		r.mu.Unlock()
		return m, nil
	})

	return v.(*Manager)
}

// ClearIfLoaded empties the session's cart when this process holds it and
// reports whether it did.
func (r *Registry) ClearIfLoaded(sessionID string) bool {
	m, ok := r.lookup(sessionID)
	if !ok {
		return false
	}
	m.Clear()
	return true
}

// Len reports how many carts are loaded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// Evict flushes the session's pending snapshot and forgets the cart.
func (r *Registry) Evict(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	e, done := r.detach(sessionID)
	r.mu.Unlock()

	if e == nil {
		return nil
	}
	return r.release(ctx, sessionID, e, done)
}

// EvictIdle evicts every cart not used for longer than maxIdle and returns how
// many were dropped.
func (r *Registry) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	type idleCart struct {
		sessionID string
		entry     *entry
		done      chan struct{}
	}

	now := r.now()
	var idle []idleCart

	r.mu.Lock()
	for sessionID, e := range r.carts {
		if e.idle(now) <= maxIdle {
			continue
		}
		_, done := r.detach(sessionID)
		idle = append(idle, idleCart{sessionID: sessionID, entry: e, done: done})
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := r.release(ctx, c.sessionID, c.entry, c.done); err != nil {
			errs = append(errs, err)
		}
	}
	return len(idle), errors.Join(errs...)
}

// EvictIdleEvery runs EvictIdle on a ticker until ctx is done. A non-positive
// maxIdle disables eviction.
func (r *Registry) EvictIdleEvery(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	interval := maxIdle / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.EvictIdle(ctx, maxIdle)
			if err != nil {
				r.log.Warn("idle cart flush incomplete", zap.Error(err))
			}
			if n > 0 {
				r.log.Debug("evicted idle carts", zap.Int("count", n), zap.Int("loaded", r.Len()))
			}
		}
	}
}

// Close flushes every loaded cart.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	carts := r.carts
	r.carts = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range carts {
		if err := e.binding.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(sessionID string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.carts[sessionID]
	if !ok {
		return nil, false
	}
	e.touch(r.now())
	return e.manager, true
}

// detach must be called with mu held.
func (r *Registry) detach(sessionID string) (*entry, chan struct{}) {
	e, ok := r.carts[sessionID]
	if !ok {
		return nil, nil
	}
	delete(r.carts, sessionID)
	done := make(chan struct{})
	r.evicting[sessionID] = done
	return e, done
}

func (r *Registry) release(ctx context.Context, sessionID string, e *entry, done chan struct{}) error {
	err := e.binding.Close(ctx)

	r.mu.Lock()
	delete(r.evicting, sessionID)
	r.mu.Unlock()
	close(done)
	return err
}

func (r *Registry) waitEvicted(sessionID string) {
	r.mu.RLock()
	done := r.evicting[sessionID]
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
}
