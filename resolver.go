package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type entry[V any] struct {
	state     State
	value     V
	fetchedAt time.Time
}

// Resolver resolves (kind, id) pairs to values lazily. Lookups issued within one
// scheduler tick are merged into a single batch fetch per kind.
type Resolver[ID comparable, V any] struct {
	fetch             BatchFetchFn[ID, V]
	providers         []Provider[ID, V]
	scheduler         Scheduler
	collector         Collector
	kinds             map[string]KindOptions[V]
	ttl               time.Duration
	modelVersion      uint16
	bisectConcurrency int

	ctx       context.Context
	cancel    context.CancelFunc
	backfills sync.WaitGroup
	notifier  *notifier[ID]

	mu        sync.Mutex
	closed    bool
	entries   map[string]map[ID]*entry[V]
	pending   map[string][]ID
	scheduled map[string]bool
	indexes   map[string]map[string]ID

	// ids owned by a running batch, whatever their state is now
	inflight map[string]map[ID]struct{}
}

// Get is a pure read. ok is false while the id is uncached or pending; ids known
// to be absent return ErrUnresolvableIdentifier.
func (r *Resolver[ID, V]) Get(kind string, id ID) (V, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero V

	e := r.entries[kind][id]
	if e == nil {
		return zero, false, nil
	}

	switch e.state {
	case StateResolved:
		return e.value, true, nil
	case StateAbsent:
		return zero, false, unresolvable(kind, id)
	default:
		return zero, false, nil
	}
}

// Resolve behaves like Get and requests the id when it is not cached yet.
func (r *Resolver[ID, V]) Resolve(kind string, id ID) (V, bool, error) {
	v, ok, err := r.Get(kind, id)
	if ok || err != nil {
		return v, ok, err
	}

	r.Request(kind, id)

	return v, false, nil
}

func (r *Resolver[ID, V]) State(kind string, id ID) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.entries[kind][id]; e != nil {
		return e.state
	}

	return StateUncached
}

// FetchedAt reports when a resolved value was stored.
func (r *Resolver[ID, V]) FetchedAt(kind string, id ID) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.entries[kind][id]; e != nil && e.state == StateResolved {
		return e.fetchedAt, true
	}

	return time.Time{}, false
}

// Register stores a value without fetching it and writes it through to every provider.
func (r *Resolver[ID, V]) Register(ctx context.Context, kind string, id ID, value V) error {
	now := time.Now()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	e := r.kindEntries(kind)[id]
	if e == nil {
		e = &entry[V]{}
		r.entries[kind][id] = e
	}
	if e.state == StateResolved {
		r.unindexLocked(kind, id, e.value)
	}
	e.state = StateResolved
	e.value = value
	e.fetchedAt = now
	r.indexLocked(kind, id, value)
	r.mu.Unlock()

	if len(r.providers) == 0 {
		return nil
	}

	toSet := map[string]*Entry[V]{
		keyFor(kind, id).Key: {Value: value, ModelVersion: r.modelVersion, FetchedAt: now},
	}

	var finalErr error
	for _, p := range r.providers {
		if err := p.MSet(ctx, toSet, r.ttl); err != nil {
			finalErr = multierror.Append(finalErr, err)
		}
	}

	return finalErr
}

// GetByIndex looks a resolved value up by one of the secondary keys produced by
// the kind's IndexFn.
func (r *Resolver[ID, V]) GetByIndex(kind string, key string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero V

	id, ok := r.indexes[kind][key]
	if !ok {
		return zero, false
	}

	e := r.entries[kind][id]
	if e == nil || e.state != StateResolved {
		return zero, false
	}

	return e.value, true
}

// Invalidate drops resolved and absent ids so the next request fetches them again.
// Queued and in-flight ids are left alone.
func (r *Resolver[ID, V]) Invalidate(kind string, ids ...ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		r.invalidateLocked(kind, id)
	}
}

func (r *Resolver[ID, V]) InvalidateKind(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.entries[kind] {
		r.invalidateLocked(kind, id)
	}
}

func (r *Resolver[ID, V]) invalidateLocked(kind string, id ID) {
	e := r.entries[kind][id]
	if e == nil {
		return
	}

	switch e.state {
	case StateResolved:
		r.unindexLocked(kind, id, e.value)
		delete(r.entries[kind], id)
	case StateAbsent:
		delete(r.entries[kind], id)
	}
}

// Load requests the id and blocks until it is resolved, proven absent, the batch
// carrying it fails without bisection, or ctx is done.
func (r *Resolver[ID, V]) Load(ctx context.Context, kind string, id ID) (V, error) {
	var zero V

	wake := make(chan struct{}, 1)
	failed := make(chan error, 1)

	unsubscribe := r.Subscribe(func(e Event[ID]) {
		if e.Kind != kind {
			return
		}

		for _, f := range e.Failed {
			if f == id {
				select {
				case failed <- e.Err:
				default:
				}
				return
			}
		}

		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		if r.isClosed() {
			return zero, ErrClosed
		}

		v, ok, err := r.Resolve(kind, id)
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}

		select {
		case <-wake:
		case err = <-failed:
			return zero, errors.Wrapf(err, "can not load %s:%v", kind, id)
		case <-ctx.Done():
			return zero, errors.WithStack(ctx.Err())
		case <-r.ctx.Done():
			return zero, ErrClosed
		}
	}
}

func (r *Resolver[ID, V]) Subscribe(fn func(Event[ID])) func() {
	return r.notifier.subscribe(fn)
}

// Close cancels the resolver context, drops subscribers and waits for provider
// back-fills. Later requests are ignored.
func (r *Resolver[ID, V]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	r.pending = map[string][]ID{}
	r.mu.Unlock()

	r.cancel()
	r.notifier.clear()
	r.backfills.Wait()

	return nil
}

func (r *Resolver[ID, V]) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

func (r *Resolver[ID, V]) kindEntries(kind string) map[ID]*entry[V] {
	m, ok := r.entries[kind]
	if !ok {
		m = map[ID]*entry[V]{}
		r.entries[kind] = m
	}

	return m
}

func (r *Resolver[ID, V]) indexLocked(kind string, id ID, value V) {
	fn := r.kinds[kind].Index
	if fn == nil {
		return
	}

	idx, ok := r.indexes[kind]
	if !ok {
		idx = map[string]ID{}
		r.indexes[kind] = idx
	}

	for _, k := range fn(value) {
		idx[k] = id
	}
}

func (r *Resolver[ID, V]) unindexLocked(kind string, id ID, value V) {
	fn := r.kinds[kind].Index
	if fn == nil {
		return
	}

	for _, k := range fn(value) {
		if cur, ok := r.indexes[kind][k]; ok && cur == id {
			delete(r.indexes[kind], k)
		}
	}
}
