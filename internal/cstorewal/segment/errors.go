package segment

import (
	"errors"
	"fmt"

	"github.com/julianstephens/cstorewal/internal/cstorewal/errorutil"
)

var (
	ErrInvalidName   = errors.New("segment: invalid segment name")
	ErrStreamDir     = errors.New("segment: prepare stream dir failed")
	ErrSegmentCreate = errors.New("segment: create failed")
	ErrSegmentSync   = errors.New("segment: fsync failed")
	ErrSegmentStat   = errors.New("segment: stat failed")

	ErrPointerRead  = errors.New("segment: read CURRENT failed")
	ErrPointerWrite = errors.New("segment: write CURRENT failed")
	ErrPointerEmpty = errors.New("segment: CURRENT is empty")
)

// SegmentError wraps segment-level failures with context.
// Err is one of the sentinels above so callers can errors.Is against it.
type SegmentError struct {
	Err error

	Stream StreamID
	Name   string

	// Op is a short label for where the error occurred:
	// "resolve", "create", "fsync", "stat", "pointer_read", "pointer_write".
	Op string

	Cause error
}

func (e *SegmentError) Error() string {
	coords := errorutil.Stream(e.Stream.DatabaseID, e.Stream.TableID, e.Name)
	if e.Op == "" {
		return fmt.Sprintf("%s (%s)", e.Err.Error(), coords)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err.Error(), coords)
}

func (e *SegmentError) Unwrap() error { return e.Err }

func (e *SegmentError) CauseErr() error { return e.Cause }

func wrapSegmentErr(op string, sentinel error, id StreamID, name string, cause error) error {
	return &SegmentError{
		Err:    sentinel,
		Stream: id,
		Name:   name,
		Op:     op,
		Cause:  cause,
	}
}
