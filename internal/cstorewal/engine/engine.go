// Package engine is the process-level entry point to the WAL: it owns a
// handle registry and exposes commit, bulk load and status operations.
package engine

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/cstorewal/wal"
	"github.com/julianstephens/cstorewal/internal/logger"
)

// Engine is an open WAL root.
type Engine struct {
	opts   cstorewal.Options
	reg    *wal.Registry
	logger logger.Logger

	mu     sync.Mutex
	closed bool
}

// StreamStatus describes the on-disk state of one stream.
type StreamStatus struct {
	Stream segment.StreamID
	// Current is the segment named by CURRENT, or "" when there is none.
	Current string
	// CurrentSize is the size of the current segment in bytes.
	CurrentSize int64
	// Segments lists every segment file in the stream directory, sorted by name.
	Segments []string
}

// Open opens an engine with no logging.
func Open(opts cstorewal.Options) (*Engine, error) {
	return OpenWithOptions(opts, logger.NoOpLogger{})
}

// OpenWithOptions opens an engine with the given options and logger.
// The caller is responsible for managing the logger lifecycle (including closing).
// If logger is nil, a NoOpLogger is used.
func OpenWithOptions(opts cstorewal.Options, lg logger.Logger, ropts ...wal.RegistryOption) (*Engine, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if err := opts.Validate(); err != nil {
		return nil, wrapEngineErr("open", ErrInvalidOptions, opts.Root, err)
	}

	lg.Info("opening wal engine", "root", opts.Root, "writer_mode", opts.WriterMode, "sync_on_append", opts.SyncOnAppend)

	reg, err := wal.NewRegistry(opts, lg, ropts...)
	if err != nil {
		lg.Error("failed to create registry", err, "root", opts.Root)
		return nil, wrapEngineErr("open", ErrOpenFailed, opts.Root, err)
	}

	return &Engine{opts: opts, reg: reg, logger: lg}, nil
}

// Root returns the WAL root directory.
func (e *Engine) Root() string {
	return e.opts.Root
}

// Registry exposes the underlying handle registry.
func (e *Engine) Registry() *wal.Registry {
	return e.reg
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// CommitAsync queues stmt on stream id and returns without waiting for the write.
func (e *Engine) CommitAsync(ctx context.Context, id segment.StreamID, stmt record.Statement) (*wal.Pending, error) {
	if e.isClosed() {
		return nil, wrapEngineErr("commit", ErrClosed, e.opts.Root, nil)
	}
	p, err := e.reg.Commit(ctx, id, stmt)
	if err != nil {
		e.logger.Error("commit failed", err, "db", id.DatabaseID, "table", id.TableID)
		return nil, wrapEngineErr("commit", ErrCommitFailed, e.opts.Root, err)
	}
	return p, nil
}

// Commit queues stmt and waits until it is written.
func (e *Engine) Commit(ctx context.Context, id segment.StreamID, stmt record.Statement) (wal.Result, error) {
	p, err := e.CommitAsync(ctx, id, stmt)
	if err != nil {
		return wal.Result{}, err
	}
	res, err := p.Wait(ctx)
	if err != nil {
		return res, wrapEngineErr("commit", ErrCommitFailed, e.opts.Root, err)
	}
	e.logger.Debug("commit successful", "db", id.DatabaseID, "table", id.TableID, "lsn", res.LSN, "segment", res.Segment)
	return res, nil
}

// LoadResult summarizes a bulk load.
type LoadResult struct {
	Count    int
	FirstLSN int64
	LastLSN  int64
}

// Load commits every non-blank line of r as a statement on stream id, in
// order, and waits for all of them. Transaction ids count up from firstTxn.
func (e *Engine) Load(ctx context.Context, id segment.StreamID, r io.Reader, processID string, firstTxn int64) (LoadResult, error) {
	var (
		out      LoadResult
		pendings []*wal.Pending
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), record.MaxPayloadSize)
	txn := firstTxn
	for sc.Scan() {
		sql := strings.TrimSpace(sc.Text())
		if sql == "" {
			continue
		}
		p, err := e.CommitAsync(ctx, id, record.Statement{ProcessID: processID, TxnID: txn, SQL: sql})
		if err != nil {
			return out, wrapEngineErr("load", ErrLoadFailed, e.opts.Root, err)
		}
		pendings = append(pendings, p)
		txn++
	}
	if err := sc.Err(); err != nil {
		return out, wrapEngineErr("load", ErrLoadFailed, e.opts.Root, err)
	}

	for _, p := range pendings {
		res, err := p.Wait(ctx)
		if err != nil {
			return out, wrapEngineErr("load", ErrLoadFailed, e.opts.Root, err)
		}
		if out.Count == 0 {
			out.FirstLSN = res.LSN
		}
		out.LastLSN = res.LSN
		out.Count++
	}

	e.logger.Info("load complete", "db", id.DatabaseID, "table", id.TableID, "count", out.Count, "last_lsn", out.LastLSN)
	return out, nil
}

// Status reports the stream's on-disk state without opening it.
func (e *Engine) Status(id segment.StreamID) (StreamStatus, error) {
	st := StreamStatus{Stream: id}

	entries, err := os.ReadDir(id.Dir(e.opts.Root))
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, wrapEngineErr("status", ErrStatusFailed, e.opts.Root, err)
	}
	for _, ent := range entries {
		if !ent.IsDir() && segment.IsValidName(ent.Name()) {
			st.Segments = append(st.Segments, ent.Name())
		}
	}

	ptr := segment.NewPointer(e.opts.Root, id)
	if !ptr.Exists() {
		return st, nil
	}
	name, err := ptr.Read()
	if err != nil {
		return st, wrapEngineErr("status", ErrStatusFailed, e.opts.Root, err)
	}
	st.Current = name

	res, err := segment.NewBootstrapper(e.opts.Root).Resolve(id, name, false)
	if err != nil {
		return st, wrapEngineErr("status", ErrStatusFailed, e.opts.Root, err)
	}
	st.CurrentSize = res.Size
	return st, nil
}

// Close drains pending writes and closes every stream. Closing twice is an error.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return wrapEngineErr("close", ErrClosed, e.opts.Root, nil)
	}

	e.logger.Info("closing wal engine", "root", e.opts.Root)
	e.closed = true
	if err := e.reg.Close(); err != nil {
		e.logger.Error("failed to close registry", err, "root", e.opts.Root)
		return wrapEngineErr("close", ErrCloseFailed, e.opts.Root, err)
	}
	return nil
}

// IsClosed returns true if the engine is closed.
func (e *Engine) IsClosed() bool {
	return e.isClosed()
}
