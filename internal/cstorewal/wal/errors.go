package wal

import (
	"errors"
	"fmt"

	"github.com/julianstephens/cstorewal/internal/cstorewal/errorutil"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
)

var (
	// Programmer / caller error
	ErrInvalidRecord = errors.New("wal: invalid record")

	// I/O layer failures
	ErrAppendFailed = errors.New("wal: append failed")
	ErrShortWrite   = errors.New("wal: short write")
	ErrFlushFailed  = errors.New("wal: flush failed")
	ErrSyncFailed   = errors.New("wal: fsync failed")
	ErrCloseFailed  = errors.New("wal: close failed")
	ErrTruncate     = errors.New("wal: truncate failed")

	// Construction / lifecycle errors
	ErrNilSegmentFile = errors.New("wal: nil segment file")
	ErrClosedWriter   = errors.New("wal: segment writer closed")
)

// SegmentWriteError describes a failed write against one segment file.
type SegmentWriteError struct {
	Err    error
	Cause  error // underlying error, if any
	Offset int64 // offset where write was attempted
	Have   int   // bytes written (if short write)
	Want   int   // bytes expected
}

func (e *SegmentWriteError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s offset=%d want=%d have=%d", e.Err.Error(), e.Offset, e.Want, e.Have)
	}
	return fmt.Sprintf("%s offset=%d want=%d have=%d: %v", e.Err.Error(), e.Offset, e.Want, e.Have, e.Cause)
}

func (e *SegmentWriteError) Unwrap() error { return e.Err }

func (e *SegmentWriteError) CauseErr() error { return e.Cause }

var (
	ErrHandleClosed  = errors.New("wal: handle closed")
	ErrBootstrap     = errors.New("wal: bootstrap segment failed")
	ErrSegmentOpen   = errors.New("wal: open segment failed")
	ErrNoFreeSegment = errors.New("wal: no unused segment name")
	ErrSegmentRotate = errors.New("wal: rotate segment failed")
	ErrHeaderWrite   = errors.New("wal: write header failed")
	ErrTrailerWrite  = errors.New("wal: write trailer failed")
	ErrPointerUpdate = errors.New("wal: update CURRENT failed")
	ErrLSNAlloc      = errors.New("wal: lsn allocation failed")
)

// HandleError wraps log handle failures with stream context.
// It preserves a stable sentinel in Err so callers can errors.Is against it.
type HandleError struct {
	Err error // one of the sentinel errors above

	Stream  segment.StreamID
	Segment string
	// LSN is set when the failure concerns a specific record; 0 otherwise.
	LSN int64

	// Op is a short label for where the error occurred:
	// "open", "append", "rotate", "header", "trailer", "pointer", "lsn", "close".
	Op string

	Cause error
}

func (e *HandleError) Error() string {
	coords := errorutil.Stream(e.Stream.DatabaseID, e.Stream.TableID, e.Segment)
	if e.LSN != 0 {
		coords = coords.WithLSN(e.LSN)
	}
	msg := e.Err.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", msg, coords, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", msg, coords)
}

func (e *HandleError) Unwrap() error { return e.Err }

// CauseErr returns the underlying cause (not used by errors.Is).
func (e *HandleError) CauseErr() error { return e.Cause }

func wrapHandleErr(op string, sentinel error, id segment.StreamID, name string, cause error) error {
	return &HandleError{
		Err:     sentinel,
		Stream:  id,
		Segment: name,
		Op:      op,
		Cause:   cause,
	}
}

var (
	ErrRegistryClosed = errors.New("wal: registry closed")
	ErrWriterPanic    = errors.New("wal: writer panicked")
	ErrEnqueue        = errors.New("wal: enqueue canceled")
	ErrEncodeRecord   = errors.New("wal: encode record failed")
)

// RegistryError wraps registry and writer pipeline failures.
type RegistryError struct {
	Err    error
	Stream segment.StreamID
	LSN    int64
	// Op is "get", "commit", "submit", "write", "close".
	Op    string
	Cause error
}

func (e *RegistryError) Error() string {
	coords := errorutil.Stream(e.Stream.DatabaseID, e.Stream.TableID, "")
	if e.LSN != 0 {
		coords = coords.WithLSN(e.LSN)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Err.Error(), coords, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err.Error(), coords)
}

func (e *RegistryError) Unwrap() error { return e.Err }

func (e *RegistryError) CauseErr() error { return e.Cause }

func wrapRegistryErr(op string, sentinel error, id segment.StreamID, lsn int64, cause error) error {
	return &RegistryError{Err: sentinel, Stream: id, LSN: lsn, Op: op, Cause: cause}
}
