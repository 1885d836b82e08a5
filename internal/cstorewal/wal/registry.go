package wal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/lsn"
	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/logger"
)

// RegistryOption customizes a Registry.
type RegistryOption func(*HandleConfig)

// WithClock sets the clock used for segment header timestamps.
func WithClock(clock func() time.Time) RegistryOption {
	return func(c *HandleConfig) { c.Clock = clock }
}

// WithAllocator replaces the process-wide LSN allocator.
func WithAllocator(a lsn.Allocator) RegistryOption {
	return func(c *HandleConfig) { c.Allocator = a }
}

// WithNamer replaces the process-wide segment namer.
func WithNamer(n *segment.Namer) RegistryOption {
	return func(c *HandleConfig) { c.Namer = n }
}

// Registry caches one Handle per stream and feeds them through writer
// goroutines.
type Registry struct {
	cfg  HandleConfig
	boot *segment.Bootstrapper
	log  logger.Logger

	mu      sync.Mutex
	handles map[segment.StreamID]*Handle
	writers map[segment.StreamID]*writer
	shared  *writer
	closed  bool

	group errgroup.Group

	beforeAppend func(segment.StreamID, int64)
}

// NewRegistry validates opts and returns an empty registry.
func NewRegistry(opts cstorewal.Options, lg logger.Logger, ropts ...RegistryOption) (*Registry, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg := HandleConfig{Options: opts, Logger: lg}
	for _, o := range ropts {
		o(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Registry{
		cfg:     cfg,
		boot:    segment.NewBootstrapper(opts.Root),
		log:     cfg.Logger,
		handles: make(map[segment.StreamID]*Handle),
		writers: make(map[segment.StreamID]*writer),
	}, nil
}

// Options returns the options the registry was built with.
func (r *Registry) Options() cstorewal.Options {
	return r.cfg.Options
}

// TryGet returns the cached handle of id if it still passes Check, otherwise
// bootstraps a new one from CURRENT (or a fresh segment name) and caches it.
func (r *Registry) TryGet(id segment.StreamID) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, wrapRegistryErr("get", ErrRegistryClosed, id, 0, nil)
	}

	if h, ok := r.handles[id]; ok {
		if h.Check() {
			return h, nil
		}
		delete(r.handles, id)
		if _, err := h.Close(); err != nil {
			r.log.Warn("closing stale handle failed", "db", id.DatabaseID, "table", id.TableID, "error", err)
		}
		r.log.Info("discarded stale handle", "db", id.DatabaseID, "table", id.TableID, "segment", h.SegmentName())
	}

	name := r.recordedSegment(id)
	if name == "" || !r.boot.Exists(id, name) {
		name = r.cfg.Namer.Next(id)
	}

	h, err := OpenHandle(r.cfg, id, name)
	if err != nil {
		return nil, err
	}
	h.writer = r.writerForLocked(id)
	r.handles[id] = h
	return h, nil
}

// recordedSegment returns the name in CURRENT, or "" when it is missing or unusable.
func (r *Registry) recordedSegment(id segment.StreamID) string {
	ptr := segment.NewPointer(r.cfg.Options.Root, id)
	if !ptr.Exists() {
		return ""
	}
	name, err := ptr.Read()
	if err != nil {
		r.log.Warn("treating unreadable CURRENT as absent", "db", id.DatabaseID, "table", id.TableID, "error", err)
		return ""
	}
	return name
}

func (r *Registry) writerForLocked(id segment.StreamID) *writer {
	if r.cfg.Options.WriterMode == cstorewal.WriterModeShared {
		if r.shared == nil {
			r.shared = r.startWriterLocked("shared")
		}
		return r.shared
	}
	w, ok := r.writers[id]
	if !ok {
		w = r.startWriterLocked(id.String())
		r.writers[id] = w
	}
	return w
}

func (r *Registry) startWriterLocked(name string) *writer {
	w := newWriter(name, r.cfg.Options.QueueSize, r.log)
	w.beforeAppend = r.beforeAppend
	r.group.Go(w.run)
	return w
}

// Commit reserves an LSN for stmt on stream id and queues it for writing.
func (r *Registry) Commit(ctx context.Context, id segment.StreamID, stmt record.Statement) (*Pending, error) {
	h, err := r.TryGet(id)
	if err != nil {
		return nil, err
	}
	return h.Commit(ctx, stmt)
}

// Streams returns the streams with a cached handle, ordered by id.
func (r *Registry) Streams() []segment.StreamID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]segment.StreamID, 0, len(r.handles))
	for id := range r.handles {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DatabaseID != out[j].DatabaseID {
			return out[i].DatabaseID < out[j].DatabaseID
		}
		return out[i].TableID < out[j].TableID
	})
	return out
}

// CloseStream drains the stream's writer (per-stream mode) and closes and
// forgets its handle. It is a no-op for an unknown stream.
func (r *Registry) CloseStream(id segment.StreamID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.writers[id]; ok {
		w.close()
		<-w.done
		delete(r.writers, id)
	}
	h, ok := r.handles[id]
	if !ok {
		return nil
	}
	delete(r.handles, id)
	_, err := h.Close()
	return err
}

// Close stops intake, waits for every queued statement to be written and
// closes all handles. Later calls return nil.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	writers := make([]*writer, 0, len(r.writers)+1)
	for _, w := range r.writers {
		writers = append(writers, w)
	}
	if r.shared != nil {
		writers = append(writers, r.shared)
	}
	r.mu.Unlock()

	for _, w := range writers {
		w.close()
	}
	waitErr := r.group.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	errs := []error{waitErr}
	for id, h := range r.handles {
		if _, err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	clear(r.handles)
	clear(r.writers)
	r.shared = nil

	if err := errors.Join(errs...); err != nil {
		return wrapRegistryErr("close", ErrCloseFailed, segment.StreamID{}, 0, err)
	}
	r.log.Debug("registry closed")
	return nil
}
