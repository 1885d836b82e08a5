package wal_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal/wal"
)

// TestSegmentWriterAppendsAtEnd tests that a writer resumes at the current file size
func TestSegmentWriterAppendsAtEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg")
	tst.RequireNoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	tst.RequireNoError(t, err)
	timer := &wal.IOTimer{}
	sw, err := wal.NewSegmentWriter(f, timer)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, sw.Size(), int64(3))

	off, err := sw.Write([]byte("defg"))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, off, int64(3))
	tst.RequireDeepEqual(t, sw.Size(), int64(7))
	tst.RequireNoError(t, sw.FSync())
	tst.RequireDeepEqual(t, timer.Count(), int64(1))

	tst.RequireNoError(t, sw.Close())
	tst.RequireNoError(t, sw.Close())

	data, err := os.ReadFile(path) //nolint:gosec
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, string(data), "abcdefg")

	_, err = sw.Write([]byte("x"))
	tst.AssertTrue(t, errors.Is(err, wal.ErrClosedWriter), "expected ErrClosedWriter")
}

// TestSegmentWriterNilFile tests construction guard
func TestSegmentWriterNilFile(t *testing.T) {
	_, err := wal.NewSegmentWriter(nil, nil)
	tst.AssertTrue(t, errors.Is(err, wal.ErrNilSegmentFile), "expected ErrNilSegmentFile")
}

// TestIOTimerStopsAfterClose tests that a closed timer keeps its total
func TestIOTimerStopsAfterClose(t *testing.T) {
	timer := &wal.IOTimer{}
	timer.Record(5)
	timer.Close()
	timer.Record(7)
	tst.RequireDeepEqual(t, int64(timer.Total()), int64(5))
	tst.RequireDeepEqual(t, timer.Count(), int64(1))
}
