package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/skynet2/labelcache")

func keyFor[ID comparable](kind string, id ID) *Key[ID] {
	return &Key[ID]{
		Key:           fmt.Sprintf("%s:%v", kind, id),
		OriginalValue: id,
	}
}

// Request queues ids for the next flush of kind. Ids that are already queued, in
// flight, resolved or absent are skipped.
func (r *Resolver[ID, V]) Request(kind string, ids ...ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	entries := r.kindEntries(kind)
	for _, id := range ids {
		if _, ok := entries[id]; ok {
			continue
		}

		entries[id] = &entry[V]{state: StatePending}
		r.pending[kind] = append(r.pending[kind], id)
	}

	if len(r.pending[kind]) > 0 && !r.scheduled[kind] {
		r.scheduled[kind] = true
		r.scheduler.Schedule(func() {
			r.flushKind(r.ctx, kind)
		})
	}
}

// Flush dispatches every queued kind right away and returns once the batches
// completed. Callbacks already handed to the scheduler become no-ops.
func (r *Resolver[ID, V]) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	kinds := make([]string, 0, len(r.pending))
	for kind, ids := range r.pending {
		if len(ids) > 0 {
			kinds = append(kinds, kind)
		}
	}
	r.mu.Unlock()

	ctx = zerolog.Ctx(r.ctx).WithContext(ctx)

	for _, kind := range kinds {
		r.flushKind(ctx, kind)
	}

	return nil
}

func (r *Resolver[ID, V]) flushKind(ctx context.Context, kind string) {
	r.mu.Lock()
	r.scheduled[kind] = false
	if r.closed {
		r.mu.Unlock()
		return
	}

	queued := r.pending[kind]
	delete(r.pending, kind)

	owned, ok := r.inflight[kind]
	if !ok {
		owned = map[ID]struct{}{}
		r.inflight[kind] = owned
	}

	ids := make([]ID, 0, len(queued))
	for _, id := range queued {
		e := r.entries[kind][id]
		if e == nil || e.state != StatePending {
			continue
		}

		// still owned by a running batch, retried once that batch finishes
		if _, busy := owned[id]; busy {
			r.pending[kind] = append(r.pending[kind], id)
			continue
		}

		e.state = StateInFlight
		owned[id] = struct{}{}
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	r.runBatch(ctx, kind, ids)
}

func (r *Resolver[ID, V]) runBatch(ctx context.Context, kind string, ids []ID) {
	ctx, span := tracer.Start(ctx, "labelcache.batch", trace.WithAttributes(
		attribute.String("labelcache.kind", kind),
		attribute.Int("labelcache.size", len(ids)),
	))
	defer span.End()

	values, toFetch, missingIn := r.fromProviders(ctx, kind, ids)
	event := Event[ID]{Kind: kind}

	var fromSource map[ID]V
	var failed []ID

	if len(toFetch) > 0 {
		start := time.Now()
		res, err := r.fetchBatch(ctx, kind, toFetch)
		r.collector.RecordBatch(kind, len(toFetch), time.Since(start), err)

		switch {
		case err == nil:
			fromSource = res
		case r.kinds[kind].DisableBisect || ctx.Err() != nil:
			span.SetStatus(codes.Error, err.Error())
			zerolog.Ctx(ctx).Err(err).Str("kind", kind).Int("size", len(toFetch)).
				Msg("batch fetch failed")

			failed = toFetch
			event.Err = err
		default:
			span.RecordError(err)
			zerolog.Ctx(ctx).Warn().Err(err).Str("kind", kind).Int("size", len(toFetch)).
				Msg("batch fetch failed, retrying ids one by one")

			event.Bisected = true

			var cancelled []ID
			fromSource, cancelled = r.bisect(ctx, kind, toFetch)
			if len(cancelled) > 0 {
				failed = cancelled
				event.Err = errors.WithStack(ctx.Err())
			}
		}
	}

	for _, id := range toFetch {
		if v, ok := fromSource[id]; ok {
			values[id] = v
		}
	}

	if len(failed) > 0 {
		event.Failed = r.release(kind, failed)
	}
	event.Resolved, event.Absent = r.apply(kind, without(ids, failed), values)
	r.finishBatch(kind, ids)

	r.backfill(ctx, kind, missingIn, fromSource)
	r.notifier.emit(event)
}

// finishBatch drops the batch's ownership of ids and schedules a flush for ids
// that were requested again while it was running.
func (r *Resolver[ID, V]) finishBatch(kind string, ids []ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.inflight[kind], id)
	}

	if r.closed || len(r.pending[kind]) == 0 || r.scheduled[kind] {
		return
	}

	r.scheduled[kind] = true
	r.scheduler.Schedule(func() {
		r.flushKind(r.ctx, kind)
	})
}

func (r *Resolver[ID, V]) fetchBatch(ctx context.Context, kind string, ids []ID) (map[ID]V, error) {
	if r.fetch == nil {
		return nil, ErrNoFetch
	}

	res, err := r.fetch(ctx, kind, ids)
	if err != nil {
		return nil, errors.Wrap(err, "can not get from source")
	}

	return res, nil
}

func (r *Resolver[ID, V]) fromProviders(ctx context.Context, kind string, ids []ID) (map[ID]V, []ID, []missingData[ID, V]) {
	found := make(map[ID]V, len(ids))
	if len(r.providers) == 0 {
		return found, ids, nil
	}

	toQuery := make([]*Key[ID], 0, len(ids))
	for _, id := range ids {
		toQuery = append(toQuery, keyFor(kind, id))
	}

	var missingIn []missingData[ID, V]

	for _, provider := range r.providers {
		hits, missing, err := provider.MGet(ctx, toQuery, r.modelVersion)
		if err != nil {
			zerolog.Ctx(ctx).Err(err).Str("kind", kind).Send()
			continue
		}

		if len(missing) > 0 {
			missingIn = append(missingIn, missingData[ID, V]{
				provider:    provider,
				missingKeys: missing,
			})
		}

		for id, e := range hits {
			found[id] = e.Value
		}

		toQuery = missing

		if len(missing) == 0 {
			break
		}
	}

	toFetch := make([]ID, 0, len(toQuery))
	for _, k := range toQuery {
		toFetch = append(toFetch, k.OriginalValue)
	}

	return found, toFetch, missingIn
}

// apply moves in-flight ids to their terminal state. Ids registered, invalidated
// or requested again meanwhile are skipped so a resolved value is never overwritten.
// Only the batch owning ids may call it, an entry in StateInFlight always belongs to it.
func (r *Resolver[ID, V]) apply(kind string, ids []ID, values map[ID]V) (resolved []ID, absent []ID) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		e := r.entries[kind][id]
		if e == nil || e.state != StateInFlight {
			continue
		}

		v, ok := values[id]
		if !ok {
			e.state = StateAbsent
			absent = append(absent, id)
			continue
		}

		e.state = StateResolved
		e.value = v
		e.fetchedAt = now
		r.indexLocked(kind, id, v)
		resolved = append(resolved, id)
	}

	return resolved, absent
}

// release returns in-flight ids to StateUncached.
func (r *Resolver[ID, V]) release(kind string, ids []ID) []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := make([]ID, 0, len(ids))
	for _, id := range ids {
		if e := r.entries[kind][id]; e != nil && e.state == StateInFlight {
			delete(r.entries[kind], id)
			released = append(released, id)
		}
	}

	return released
}

func (r *Resolver[ID, V]) backfill(ctx context.Context, kind string, missingIn []missingData[ID, V], fromSource map[ID]V) {
	if len(missingIn) == 0 || len(fromSource) == 0 {
		return
	}

	now := time.Now()
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.backfills.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.backfills.Done()

		for _, m := range missingIn {
			toSet := map[string]*Entry[V]{}
			for _, k := range m.missingKeys {
				if v, ok := fromSource[k.OriginalValue]; ok {
					toSet[k.Key] = &Entry[V]{Value: v, ModelVersion: r.modelVersion, FetchedAt: now}
				}
			}

			if len(toSet) == 0 {
				continue
			}

			if err := m.provider.MSet(ctx, toSet, r.ttl); err != nil { // coz async
				zerolog.Ctx(ctx).Err(err).Str("kind", kind).Send()
			}
		}
	}()
}

func without[ID comparable](ids []ID, drop []ID) []ID {
	if len(drop) == 0 {
		return ids
	}

	skip := make(map[ID]struct{}, len(drop))
	for _, id := range drop {
		skip[id] = struct{}{}
	}

	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}

	return out
}
