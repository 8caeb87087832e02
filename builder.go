package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTtl               = 5 * time.Minute
	DefaultBisectConcurrency = 4
)

func NewResolverBuilder[ID comparable, V any](
	fetch BatchFetchFn[ID, V],
	providers ...Provider[ID, V],
) *Builder[ID, V] {
	return &Builder[ID, V]{
		fetch:             fetch,
		providers:         providers,
		kinds:             map[string]KindOptions[V]{},
		ttl:               DefaultTtl,
		bisectConcurrency: DefaultBisectConcurrency,
	}
}

func (b *Builder[ID, V]) Build() *Resolver[ID, V] {
	logger := log.Logger
	if b.logger != nil {
		logger = *b.logger
	}

	scheduler := b.scheduler
	if scheduler == nil {
		scheduler = NewTickScheduler(DefaultTickDelay)
	}

	kinds := make(map[string]KindOptions[V], len(b.kinds))
	for k, v := range b.kinds {
		kinds[k] = v
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))

	return &Resolver[ID, V]{
		fetch:             b.fetch,
		providers:         append([]Provider[ID, V](nil), b.providers...),
		scheduler:         scheduler,
		collector:         WithCollector(b.collector),
		kinds:             kinds,
		ttl:               b.ttl,
		modelVersion:      b.modelVersion,
		bisectConcurrency: b.bisectConcurrency,
		ctx:               ctx,
		cancel:            cancel,
		entries:           map[string]map[ID]*entry[V]{},
		pending:           map[string][]ID{},
		scheduled:         map[string]bool{},
		inflight:          map[string]map[ID]struct{}{},
		indexes:           map[string]map[string]ID{},
		notifier:          newNotifier[ID](),
	}
}

func (b *Builder[ID, V]) WithTtl(ttl time.Duration) *Builder[ID, V] {
	b.ttl = ttl

	return b
}

func (b *Builder[ID, V]) WithProviders(providers ...Provider[ID, V]) *Builder[ID, V] {
	b.providers = append(b.providers, providers...)

	return b
}

func (b *Builder[ID, V]) WithModelVersion(version uint16) *Builder[ID, V] {
	b.modelVersion = version

	return b
}

func (b *Builder[ID, V]) WithScheduler(scheduler Scheduler) *Builder[ID, V] {
	b.scheduler = scheduler

	return b
}

func (b *Builder[ID, V]) WithCollector(collector Collector) *Builder[ID, V] {
	b.collector = collector

	return b
}

func (b *Builder[ID, V]) WithKind(kind string, opts KindOptions[V]) *Builder[ID, V] {
	b.kinds[kind] = opts

	return b
}

// WithBisectConcurrency bounds the number of singleton retries in flight at once.
func (b *Builder[ID, V]) WithBisectConcurrency(n int) *Builder[ID, V] {
	if n < 1 {
		n = 1
	}
	b.bisectConcurrency = n

	return b
}

func (b *Builder[ID, V]) WithLogger(logger zerolog.Logger) *Builder[ID, V] {
	b.logger = &logger

	return b
}
