package cache

import "time"

// Collector captures per-batch instrumentation.
type Collector interface {
	RecordBatch(kind string, size int, duration time.Duration, err error)
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

// RecordBatch implements Collector.
func (NoopCollector) RecordBatch(string, int, time.Duration, error) {}

// MultiCollector fan-outs events to multiple collectors.
type MultiCollector []Collector

// RecordBatch implements Collector.
func (mc MultiCollector) RecordBatch(kind string, size int, duration time.Duration, err error) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordBatch(kind, size, duration, err)
	}
}

// WithCollector returns a collector that fans out to all provided collectors.
func WithCollector(primary Collector, others ...Collector) Collector {
	collectors := make([]Collector, 0, 1+len(others))
	if primary != nil {
		collectors = append(collectors, primary)
	}
	for _, c := range others {
		if c != nil {
			collectors = append(collectors, c)
		}
	}
	switch len(collectors) {
	case 0:
		return NoopCollector{}
	case 1:
		return collectors[0]
	default:
		return MultiCollector(collectors)
	}
}
