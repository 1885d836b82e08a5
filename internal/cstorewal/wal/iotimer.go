package wal

import (
	"sync/atomic"
	"time"
)

// IOTimer accumulates time spent in segment writes.
type IOTimer struct {
	totalNanos atomic.Int64
	count      atomic.Int64
	closed     atomic.Bool
}

// Time runs fn and adds its wall time to the accumulator.
func (t *IOTimer) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	t.Record(time.Since(start))
	return err
}

// Record adds d to the accumulator. It is ignored after Close.
func (t *IOTimer) Record(d time.Duration) {
	if t.closed.Load() {
		return
	}
	t.totalNanos.Add(d.Nanoseconds())
	t.count.Add(1)
}

// Total returns the accumulated write time.
func (t *IOTimer) Total() time.Duration {
	return time.Duration(t.totalNanos.Load())
}

// Count returns the number of timed writes.
func (t *IOTimer) Count() int64 {
	return t.count.Load()
}

// Close stops accumulation; totals remain readable.
func (t *IOTimer) Close() {
	t.closed.Store(true)
}
