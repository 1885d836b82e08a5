package wal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/logger"
)

const panicBackoff = 5 * time.Millisecond

// entry is one queued statement, consumed exactly once by a writer.
type entry struct {
	handle  *Handle
	stmt    record.Statement
	lsn     int64
	pending *Pending
}

// writer drains a FIFO queue of entries on a single goroutine. Each handle
// is served by exactly one writer.
type writer struct {
	name string
	log  logger.Logger

	// mu makes LSN allocation and enqueue one step, so queue order is LSN order.
	mu     sync.Mutex
	closed bool
	queue  chan *entry
	done   chan struct{}

	// beforeAppend runs ahead of each append; set only in tests.
	beforeAppend func(segment.StreamID, int64)
}

func newWriter(name string, queueSize int, lg logger.Logger) *writer {
	return &writer{
		name:  name,
		log:   logger.With(lg, "writer", name),
		queue: make(chan *entry, queueSize),
		done:  make(chan struct{}),
	}
}

// submit reserves the next LSN of h and queues stmt behind it. It blocks
// while the queue is full unless ctx is done first.
func (w *writer) submit(ctx context.Context, h *Handle, stmt record.Statement) (*Pending, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, wrapRegistryErr("submit", ErrRegistryClosed, h.Stream(), 0, nil)
	}

	v, err := h.LSN()
	if err != nil {
		return nil, wrapRegistryErr("submit", ErrLSNAlloc, h.Stream(), 0, err)
	}
	e := &entry{handle: h, stmt: stmt, lsn: v, pending: newPending(h.Stream(), v)}

	select {
	case w.queue <- e:
		return e.pending, nil
	case <-ctx.Done():
		return nil, wrapRegistryErr("submit", ErrEnqueue, h.Stream(), v, ctx.Err())
	}
}

// run consumes the queue until it is closed and drained.
func (w *writer) run() error {
	defer close(w.done)
	w.log.Debug("writer started")
	for e := range w.queue {
		w.process(e)
	}
	w.log.Debug("writer stopped")
	return nil
}

func (w *writer) process(e *entry) {
	id := e.handle.Stream()
	defer func() {
		if r := recover(); r != nil {
			err := wrapRegistryErr("write", ErrWriterPanic, id, e.lsn, fmt.Errorf("%v", r))
			w.log.Error("recovered writer panic", err, "db", id.DatabaseID, "table", id.TableID, "lsn", e.lsn)
			e.pending.complete("", err)
			time.Sleep(panicBackoff)
		}
	}()

	if w.beforeAppend != nil {
		w.beforeAppend(id, e.lsn)
	}
	err := e.handle.appendStatement(e.lsn, e.stmt)
	if err != nil {
		w.log.Error("append failed", err, "db", id.DatabaseID, "table", id.TableID, "lsn", e.lsn)
	}
	e.pending.complete(e.handle.SegmentName(), err)
}

// close stops intake. Queued entries are still written.
func (w *writer) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}
