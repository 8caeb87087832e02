package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Provider is a second-level store consulted by a flush before the batch fetch.
type Provider[ID comparable, V any] interface {
	MGet(ctx context.Context, keys []*Key[ID], requiredModelVersion uint16) (map[ID]*Entry[V], []*Key[ID], error)
	MSet(ctx context.Context, values map[string]*Entry[V], ttl time.Duration) error
}

type Builder[ID comparable, V any] struct {
	fetch             BatchFetchFn[ID, V]
	providers         []Provider[ID, V]
	scheduler         Scheduler
	collector         Collector
	kinds             map[string]KindOptions[V]
	ttl               time.Duration
	modelVersion      uint16
	bisectConcurrency int
	logger            *zerolog.Logger
}

type Key[ID comparable] struct {
	Key           string
	OriginalValue ID
}

// Entry is the envelope stored in providers.
type Entry[V any] struct {
	Value        V         `msgpack:"v"`
	ModelVersion uint16    `msgpack:"mv"`
	FetchedAt    time.Time `msgpack:"at"`
}

func (e *Entry[V]) GetCacheModelVersion() uint16 {
	return e.ModelVersion
}

type Entity interface {
	GetCacheModelVersion() uint16
}

// current reports whether a stored entity was written with the model version
// the reader expects. Anything else counts as a miss.
func current(e Entity, requiredModelVersion uint16) bool {
	return e != nil && e.GetCacheModelVersion() == requiredModelVersion
}

// BatchFetchFn resolves ids of one kind. Ids missing from the returned map do not
// exist; a non-nil error means the whole batch failed.
type BatchFetchFn[ID comparable, V any] func(ctx context.Context, kind string, ids []ID) (map[ID]V, error)

// IndexFn returns the secondary keys a resolved value can be looked up by.
type IndexFn[V any] func(value V) []string

type KindOptions[V any] struct {
	// DisableBisect turns off singleton retries; a failed batch returns its ids to StateUncached.
	DisableBisect bool
	Index         IndexFn[V]
}

type State uint8

const (
	StateUncached State = iota
	StatePending
	StateInFlight
	StateResolved
	StateAbsent
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateResolved:
		return "resolved"
	case StateAbsent:
		return "absent"
	default:
		return "uncached"
	}
}

// Event is emitted once per completed batch.
type Event[ID comparable] struct {
	Kind     string
	Resolved []ID
	Absent   []ID
	Failed   []ID
	Bisected bool
	Err      error
}

type missingData[ID comparable, V any] struct {
	provider    Provider[ID, V]
	missingKeys []*Key[ID]
}
