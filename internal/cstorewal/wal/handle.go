package wal

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/lsn"
	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/logger"
)

// HandleConfig carries the collaborators shared by every handle of a registry.
// Nil fields fall back to process defaults.
type HandleConfig struct {
	Options   cstorewal.Options
	Namer     *segment.Namer
	Allocator lsn.Allocator
	// Clock stamps segment headers.
	Clock  func() time.Time
	Logger logger.Logger
}

func (c HandleConfig) withDefaults() HandleConfig {
	if c.Namer == nil {
		c.Namer = segment.DefaultNamer
	}
	if c.Allocator == nil {
		c.Allocator = lsn.Default
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = logger.NoOpLogger{}
	}
	return c
}

// Handle owns the active segment of one stream. Only one goroutine should
// append through a handle at a time; LSN may be called concurrently.
type Handle struct {
	cfg     HandleConfig
	id      segment.StreamID
	boot    *segment.Bootstrapper
	pointer *segment.Pointer
	timer   *IOTimer
	log     logger.Logger

	// writer is the pipeline Commit submits to; nil for a detached handle.
	writer *writer

	lsnMu      sync.Mutex
	pending    int64
	hasPending bool

	// mu guards sw and rotation.
	mu   sync.Mutex
	sw   *SegmentWriter
	name atomic.Value // string
	size atomic.Int64

	closed atomic.Bool
}

// OpenHandle opens (creating if needed) segment name of stream id and binds
// a handle to it. The predecessor written into a new header is the segment
// recorded in CURRENT, or NoPredecessor when there is none.
func OpenHandle(cfg HandleConfig, id segment.StreamID, name string) (*Handle, error) {
	cfg = cfg.withDefaults()
	h := &Handle{
		cfg:     cfg,
		id:      id,
		boot:    segment.NewBootstrapper(cfg.Options.Root),
		pointer: segment.NewPointer(cfg.Options.Root, id),
		timer:   &IOTimer{},
		log:     logger.With(cfg.Logger, "db", id.DatabaseID, "table", id.TableID),
	}

	predecessor := segment.NoPredecessor
	if h.pointer.Exists() {
		cur, err := h.pointer.Read()
		if err != nil {
			h.log.Warn("ignoring unreadable CURRENT", "error", err)
		} else if cur != name {
			predecessor = cur
		}
	}

	res, err := h.bind(name)
	if err != nil {
		return nil, err
	}

	if res.Created || res.Size == 0 {
		if err := h.writeHeader(h.sw, name, predecessor); err != nil {
			_ = h.sw.Close()
			return nil, err
		}
		h.size.Store(h.sw.Size())
	}
	if res.Created {
		if err := h.pointer.Write(name); err != nil {
			_ = h.sw.Close()
			return nil, wrapHandleErr("pointer", ErrPointerUpdate, id, name, err)
		}
	}

	h.log.Debug("opened segment", "segment", name, "created", res.Created, "size", h.size.Load())
	return h, nil
}

// bind resolves name on disk and makes it the active segment.
func (h *Handle) bind(name string) (segment.Resolution, error) {
	res, sw, err := h.openSegment(name)
	if err != nil {
		return res, err
	}
	h.install(name, sw)
	return res, nil
}

// openSegment resolves name (creating it if absent) and opens an append
// writer on it.
func (h *Handle) openSegment(name string) (segment.Resolution, *SegmentWriter, error) {
	res, err := h.boot.Resolve(h.id, name, true)
	if err != nil {
		return segment.Resolution{}, nil, wrapHandleErr("open", ErrBootstrap, h.id, name, err)
	}
	sw, err := h.openWriter(res)
	if err != nil {
		return segment.Resolution{}, nil, err
	}
	return res, sw, nil
}

func (h *Handle) openWriter(res segment.Resolution) (*SegmentWriter, error) {
	f, err := os.OpenFile(res.Path, os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		return nil, wrapHandleErr("open", ErrSegmentOpen, h.id, res.Name, err)
	}
	sw, err := NewSegmentWriter(f, h.timer)
	if err != nil {
		_ = f.Close()
		return nil, wrapHandleErr("open", ErrSegmentOpen, h.id, res.Name, err)
	}
	return sw, nil
}

// install replaces the active writer with sw. The previous writer is
// flushed and closed.
func (h *Handle) install(name string, sw *SegmentWriter) {
	if h.sw != nil {
		if err := h.sw.Close(); err != nil {
			h.log.Warn("closing previous segment writer failed", "segment", h.SegmentName(), "error", err)
		}
	}
	h.sw = sw
	h.name.Store(name)
	h.size.Store(sw.Size())
}

// reservePending allocates an LSN into the pending slot and returns it.
func (h *Handle) reservePending() (int64, error) {
	h.lsnMu.Lock()
	defer h.lsnMu.Unlock()

	v, err := h.cfg.Allocator.Next()
	if err != nil {
		return 0, wrapHandleErr("lsn", ErrLSNAlloc, h.id, h.SegmentName(), err)
	}
	h.pending = v
	h.hasPending = true
	return v, nil
}

// LSN returns the pending LSN reserved by the latest header if it has not
// been handed out yet, otherwise a freshly allocated one.
func (h *Handle) LSN() (int64, error) {
	h.lsnMu.Lock()
	defer h.lsnMu.Unlock()

	if h.hasPending {
		h.hasPending = false
		return h.pending, nil
	}
	v, err := h.cfg.Allocator.Next()
	if err != nil {
		return 0, wrapHandleErr("lsn", ErrLSNAlloc, h.id, h.SegmentName(), err)
	}
	return v, nil
}

// writeHeader writes and fsyncs a header into sw, reserving its LSN in
// the pending slot.
func (h *Handle) writeHeader(sw *SegmentWriter, name, predecessor string) error {
	v, err := h.reservePending()
	if err != nil {
		return err
	}
	data, err := record.EncodeHeader(record.Header{
		Version:     record.Version,
		LSN:         v,
		Predecessor: predecessor,
		CreatedAt:   h.cfg.Clock(),
	})
	if err != nil {
		return wrapHandleErr("header", ErrHeaderWrite, h.id, name, err)
	}
	if _, err := sw.Write(data); err != nil {
		return wrapHandleErr("header", ErrHeaderWrite, h.id, name, err)
	}
	if err := sw.FSync(); err != nil {
		return wrapHandleErr("header", ErrHeaderWrite, h.id, name, err)
	}
	return nil
}

func (h *Handle) writeTrailerLocked(successor string) error {
	name := h.SegmentName()
	data, err := record.EncodeTrailer(record.Trailer{Successor: successor})
	if err != nil {
		return wrapHandleErr("trailer", ErrTrailerWrite, h.id, name, err)
	}
	if _, err := h.sw.Write(data); err != nil {
		return wrapHandleErr("trailer", ErrTrailerWrite, h.id, name, err)
	}
	if err := h.sw.FSync(); err != nil {
		return wrapHandleErr("trailer", ErrTrailerWrite, h.id, name, err)
	}
	return nil
}

func (h *Handle) needsRotation(n int) bool {
	if h.size.Load()+int64(n) >= h.cfg.Options.RotationThreshold() {
		return true
	}
	return !h.boot.Exists(h.id, h.SegmentName())
}

// successorLocked finds a segment to rotate into: a name from the namer
// whose file is new or empty. Names already holding data are skipped, so a
// wrapped namer counter never reopens a retired segment.
func (h *Handle) successorLocked(old string) (segment.Resolution, *SegmentWriter, error) {
	var lastErr error
	for range segment.NamesPerSecond {
		name := h.cfg.Namer.Next(h.id)
		if name == old {
			continue
		}
		res, err := h.boot.Resolve(h.id, name, true)
		if err != nil {
			h.log.Warn("skipping unusable segment name", "segment", name, "error", err)
			lastErr = err
			continue
		}
		if !res.Created && res.Size > 0 {
			continue
		}
		sw, err := h.openWriter(res)
		if err != nil {
			return segment.Resolution{}, nil, err
		}
		return res, sw, nil
	}
	if lastErr == nil {
		lastErr = ErrNoFreeSegment
	}
	return segment.Resolution{}, nil, wrapHandleErr("rotate", ErrSegmentRotate, h.id, old, lastErr)
}

// rotateLocked moves the handle to a fresh segment. The successor is
// opened first; then the old segment gets its trailer, the successor its
// header, and CURRENT is switched. If a step fails both files are truncated
// back and the handle stays on the old segment.
func (h *Handle) rotateLocked() error {
	old := h.SegmentName()
	res, next, err := h.successorLocked(old)
	if err != nil {
		return err
	}

	mark := h.sw.Size()
	trailed := h.boot.Exists(h.id, old)
	if trailed {
		if err := h.writeTrailerLocked(res.Name); err != nil {
			return h.abortRotationLocked(next, mark, trailed, err)
		}
	} else {
		h.log.Warn("active segment missing, rotating without trailer", "segment", old)
	}

	if err := h.writeHeader(next, res.Name, old); err != nil {
		return h.abortRotationLocked(next, mark, trailed, err)
	}
	if err := h.pointer.Write(res.Name); err != nil {
		return h.abortRotationLocked(next, mark, trailed, wrapHandleErr("pointer", ErrPointerUpdate, h.id, res.Name, err))
	}

	h.install(res.Name, next)
	h.log.Info("rotated segment", "from", old, "to", res.Name)
	return nil
}

// abortRotationLocked empties the unused successor and, when a trailer was
// attempted, cuts the old segment back to mark. If the old segment cannot
// be restored the handle is closed so the registry replaces it.
func (h *Handle) abortRotationLocked(next *SegmentWriter, mark int64, trailed bool, cause error) error {
	if err := next.Truncate(0); err != nil {
		h.log.Warn("emptying abandoned segment failed", "error", err)
	}
	_ = next.Close()

	if !trailed {
		return cause
	}
	if err := h.sw.Truncate(mark); err != nil {
		h.log.Error("restoring segment after failed rotation failed; closing handle", err, "segment", h.SegmentName())
		h.closed.Store(true)
		_ = h.sw.Close()
		return errors.Join(cause, wrapHandleErr("rotate", ErrSegmentRotate, h.id, h.SegmentName(), err))
	}
	h.size.Store(mark)
	return cause
}

// Append writes b to the active segment, rotating first when b would push
// the segment past the rotation threshold or the segment file has vanished.
func (h *Handle) Append(b []byte) error {
	rotate := h.needsRotation(len(b))

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return wrapHandleErr("append", ErrHandleClosed, h.id, h.SegmentName(), nil)
	}
	if rotate && h.needsRotation(len(b)) {
		if err := h.rotateLocked(); err != nil {
			return err
		}
	}

	if _, err := h.sw.Write(b); err != nil {
		return wrapHandleErr("append", ErrAppendFailed, h.id, h.SegmentName(), err)
	}
	var err error
	if h.cfg.Options.SyncOnAppend {
		err = h.sw.FSync()
	} else {
		err = h.sw.Flush()
	}
	h.size.Store(h.sw.Size())
	if err != nil {
		return wrapHandleErr("append", ErrAppendFailed, h.id, h.SegmentName(), err)
	}
	return nil
}

// appendStatement frames stmt as a record carrying lsn and appends it.
func (h *Handle) appendStatement(lsnValue int64, stmt record.Statement) error {
	payload, err := record.EncodeStatement(stmt)
	if err != nil {
		return &HandleError{Err: ErrInvalidRecord, Stream: h.id, Segment: h.SegmentName(), LSN: lsnValue, Op: "encode", Cause: err}
	}
	data, err := record.EncodeRecord(lsnValue, payload)
	if err != nil {
		return &HandleError{Err: ErrInvalidRecord, Stream: h.id, Segment: h.SegmentName(), LSN: lsnValue, Op: "encode", Cause: err}
	}
	return h.Append(data)
}

// Commit records stmt. Through a registry the statement is queued on the
// stream's writer; a detached handle appends synchronously. Either way the
// returned Pending resolves once the record is on disk.
func (h *Handle) Commit(ctx context.Context, stmt record.Statement) (*Pending, error) {
	if h.writer != nil {
		return h.writer.submit(ctx, h, stmt)
	}

	v, err := h.LSN()
	if err != nil {
		return nil, err
	}
	p := newPending(h.id, v)
	err = h.appendStatement(v, stmt)
	p.complete(h.SegmentName(), err)
	return p, nil
}

// Check reports whether the handle is still usable: open, with its segment
// and CURRENT both on disk.
func (h *Handle) Check() bool {
	if h.closed.Load() {
		return false
	}
	if !h.boot.Exists(h.id, h.SegmentName()) {
		return false
	}
	return h.pointer.Exists()
}

// Close flushes and closes the active segment. The first call returns true;
// later calls return false and do nothing. No trailer is written.
func (h *Handle) Close() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return false, nil
	}
	h.closed.Store(true)

	var err error
	if h.sw != nil {
		if cerr := h.sw.Close(); cerr != nil {
			err = wrapHandleErr("close", ErrCloseFailed, h.id, h.SegmentName(), cerr)
		}
	}
	_ = h.pointer.Close()
	h.timer.Close()

	h.log.Debug("closed handle", "segment", h.SegmentName(), "io_cost", h.timer.Total())
	return true, err
}

// Stream returns the stream this handle writes.
func (h *Handle) Stream() segment.StreamID {
	return h.id
}

// SegmentName returns the active segment name.
func (h *Handle) SegmentName() string {
	name, _ := h.name.Load().(string)
	return name
}

// Size returns the active segment size in bytes.
func (h *Handle) Size() int64 {
	return h.size.Load()
}

// IOCost returns the time spent writing segment bytes.
func (h *Handle) IOCost() time.Duration {
	return h.timer.Total()
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}
