package cstorewal

import (
	"errors"
	"fmt"
)

var ErrInvalidOptions = errors.New("cstorewal: invalid options")

// Options configures a WAL registry.
//
// Root is the directory under which every stream gets
// <Root>/<databaseId>/<tableId>/. A segment is rotated before an append that
// would bring it to MaxSegmentBytes-RotationMargin bytes or more.
type Options struct {
	Root            string
	MaxSegmentBytes int64
	RotationMargin  int64

	// QueueSize bounds each writer queue; Commit blocks while it is full.
	QueueSize int

	// WriterMode is WriterModePerStream (one writer goroutine per stream) or
	// WriterModeShared (one writer goroutine for every stream).
	WriterMode string

	// SyncOnAppend fsyncs the segment after every append.
	SyncOnAppend bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Root:            DefaultRoot,
		MaxSegmentBytes: DefaultMaxSegmentBytes,
		RotationMargin:  DefaultRotationMargin,
		QueueSize:       DefaultQueueSize,
		WriterMode:      WriterModePerStream,
	}
}

// RotationThreshold is the size at which an append triggers rotation.
func (o Options) RotationThreshold() int64 {
	return o.MaxSegmentBytes - o.RotationMargin
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	switch {
	case o.Root == "":
		return fmt.Errorf("%w: empty root", ErrInvalidOptions)
	case o.MaxSegmentBytes <= 0:
		return fmt.Errorf("%w: max segment bytes must be > 0 (got %d)", ErrInvalidOptions, o.MaxSegmentBytes)
	case o.RotationMargin < 0 || o.RotationMargin >= o.MaxSegmentBytes:
		return fmt.Errorf("%w: rotation margin %d out of range", ErrInvalidOptions, o.RotationMargin)
	case o.QueueSize < 1:
		return fmt.Errorf("%w: queue size must be >= 1 (got %d)", ErrInvalidOptions, o.QueueSize)
	}
	switch o.WriterMode {
	case WriterModePerStream, WriterModeShared:
	default:
		return fmt.Errorf("%w: unknown writer mode %q", ErrInvalidOptions, o.WriterMode)
	}
	return nil
}
