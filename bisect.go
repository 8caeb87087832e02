package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// bisect retries a failed batch one id at a time. Ids missing from the result
// failed again (or do not exist) and end up absent. There is no further retry.
// Ids given up on because ctx was cancelled are returned separately.
func (r *Resolver[ID, V]) bisect(ctx context.Context, kind string, ids []ID) (map[ID]V, []ID) {
	ctx, span := tracer.Start(ctx, "labelcache.bisect", trace.WithAttributes(
		attribute.String("labelcache.kind", kind),
		attribute.Int("labelcache.size", len(ids)),
	))
	defer span.End()

	var mu sync.Mutex
	values := make(map[ID]V, len(ids))
	cancelled := map[ID]struct{}{}

	var g errgroup.Group
	g.SetLimit(r.bisectConcurrency)

	for _, id := range ids {
		id := id

		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				cancelled[id] = struct{}{}
				mu.Unlock()
				return nil
			}

			start := time.Now()
			res, err := r.fetchBatch(ctx, kind, []ID{id})
			r.collector.RecordBatch(kind, 1, time.Since(start), err)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil && ctx.Err() != nil:
				cancelled[id] = struct{}{}
			case err != nil:
				zerolog.Ctx(ctx).Err(err).Str("kind", kind).Interface("id", id).
					Msg("identifier can not be resolved")
			default:
				if v, ok := res[id]; ok {
					values[id] = v
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	var skipped []ID
	for _, id := range ids {
		if _, ok := cancelled[id]; ok {
			skipped = append(skipped, id)
		}
	}

	span.SetAttributes(
		attribute.Int("labelcache.resolved", len(values)),
		attribute.Int("labelcache.cancelled", len(skipped)),
	)

	return values, skipped
}
