package wal

import (
	"bufio"
	"errors"
	"io"
	"os"
)

const (
	segmentWriterBufferSize = 64 << 10 // 64KiB
)

// SegmentWriter appends raw blocks to one segment file.
type SegmentWriter struct {
	file       *os.File
	currOffset int64
	writer     *bufio.Writer
	timer      *IOTimer
	closed     bool
}

// NewSegmentWriter positions a writer at the end of file. Write time is
// charged to timer when it is non-nil.
func NewSegmentWriter(file *os.File, timer *IOTimer) (*SegmentWriter, error) {
	if file == nil {
		return nil, ErrNilSegmentFile
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}

	return &SegmentWriter{
		file:       file,
		currOffset: info.Size(),
		writer:     bufio.NewWriterSize(file, segmentWriterBufferSize),
		timer:      timer,
	}, nil
}

// Write buffers b and returns the offset it starts at.
func (sw *SegmentWriter) Write(b []byte) (int64, error) {
	if sw.closed {
		return 0, ErrClosedWriter
	}
	offset := sw.currOffset

	var n int
	write := func() error {
		var err error
		n, err = sw.writer.Write(b)
		return err
	}
	var err error
	if sw.timer != nil {
		err = sw.timer.Time(write)
	} else {
		err = write()
	}
	sw.currOffset += int64(n)

	if err != nil {
		return offset, &SegmentWriteError{Err: ErrAppendFailed, Cause: err, Offset: offset, Have: n, Want: len(b)}
	}
	if n != len(b) {
		return offset, &SegmentWriteError{Err: ErrShortWrite, Offset: offset, Have: n, Want: len(b)}
	}
	return offset, nil
}

// Flush pushes buffered bytes to the OS.
func (sw *SegmentWriter) Flush() error {
	if sw.closed {
		return ErrClosedWriter
	}
	if err := sw.writer.Flush(); err != nil {
		return &SegmentWriteError{Err: ErrFlushFailed, Cause: err, Offset: sw.currOffset}
	}
	return nil
}

// FSync flushes then fsyncs file data.
func (sw *SegmentWriter) FSync() error {
	if err := sw.Flush(); err != nil {
		return err
	}
	if err := syncData(sw.file); err != nil {
		return &SegmentWriteError{Err: ErrSyncFailed, Cause: err, Offset: sw.currOffset}
	}
	return nil
}

// Truncate discards everything past size and fsyncs the file. Buffered
// bytes that cannot be flushed are dropped.
func (sw *SegmentWriter) Truncate(size int64) error {
	if sw.closed {
		return ErrClosedWriter
	}
	if err := sw.writer.Flush(); err != nil {
		sw.writer.Reset(sw.file)
	}
	if err := sw.file.Truncate(size); err != nil {
		return &SegmentWriteError{Err: ErrTruncate, Cause: err, Offset: size}
	}
	if err := syncData(sw.file); err != nil {
		return &SegmentWriteError{Err: ErrSyncFailed, Cause: err, Offset: size}
	}
	sw.currOffset = size
	return nil
}

// Size returns the logical end of the segment including buffered bytes.
func (sw *SegmentWriter) Size() int64 {
	return sw.currOffset
}

// Close flushes and closes the file. Calling Close again is a no-op.
func (sw *SegmentWriter) Close() error {
	if sw.closed {
		return nil
	}
	sw.closed = true

	flushErr := sw.writer.Flush()
	closeErr := sw.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return &SegmentWriteError{Err: ErrCloseFailed, Cause: err, Offset: sw.currOffset}
	}
	return nil
}
