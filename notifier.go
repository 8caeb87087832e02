package cache

import (
	"slices"
	"sync"
)

type notifier[ID comparable] struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]func(Event[ID])
}

func newNotifier[ID comparable]() *notifier[ID] {
	return &notifier[ID]{
		subscribers: map[uint64]func(Event[ID]){},
	}
}

func (n *notifier[ID]) subscribe(fn func(Event[ID])) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subscribers[id] = fn
	n.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			n.mu.Unlock()
		})
	}
}

// emit calls every subscriber in registration order, outside the lock so a
// subscriber may read the resolver or unsubscribe.
func (n *notifier[ID]) emit(event Event[ID]) {
	n.mu.Lock()
	ids := make([]uint64, 0, len(n.subscribers))
	fns := make(map[uint64]func(Event[ID]), len(n.subscribers))
	for id, fn := range n.subscribers {
		ids = append(ids, id)
		fns[id] = fn
	}
	n.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		fns[id](event)
	}
}

func (n *notifier[ID]) clear() {
	n.mu.Lock()
	n.subscribers = map[uint64]func(Event[ID]){}
	n.mu.Unlock()
}
