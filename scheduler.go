package cache

import (
	"sync"
	"time"
)

// DefaultTickDelay is the coalescing window of TickScheduler.
const DefaultTickDelay = time.Millisecond

// Scheduler runs flush callbacks once the current burst of requests is over.
type Scheduler interface {
	Schedule(fn func())
}

// TickScheduler runs each callback on its own goroutine after Delay.
type TickScheduler struct {
	Delay time.Duration
}

func NewTickScheduler(delay time.Duration) *TickScheduler {
	if delay < 0 {
		delay = DefaultTickDelay
	}

	return &TickScheduler{Delay: delay}
}

func (s *TickScheduler) Schedule(fn func()) {
	if s.Delay <= 0 {
		go fn()
		return
	}

	time.AfterFunc(s.Delay, fn)
}

// ManualScheduler queues callbacks until RunPending is called.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// RunPending runs the callbacks queued so far and returns how many ran.
// Callbacks scheduled while running wait for the next call.
func (s *ManualScheduler) RunPending() int {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, fn := range queue {
		fn()
	}

	return len(queue)
}

func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}
