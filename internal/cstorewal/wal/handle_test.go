package wal_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/cstorewal/wal"
	"github.com/julianstephens/cstorewal/internal/testutil"
)

func openDetached(t *testing.T, root string, maxBytes int64, alloc *testutil.SeqAllocator) (*wal.Handle, *segment.Namer) {
	t.Helper()
	opts := testOptions(root)
	if maxBytes > 0 {
		opts.MaxSegmentBytes = maxBytes
	}
	namer := segment.NewNamer(testutil.FixedClock(testTime))
	h, err := wal.OpenHandle(wal.HandleConfig{
		Options:   opts,
		Namer:     namer,
		Allocator: alloc,
		Clock:     testutil.FixedClock(testTime),
	}, testStream, namer.Next(testStream))
	tst.RequireNoError(t, err)
	t.Cleanup(func() { _, _ = h.Close() })
	return h, namer
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec
	tst.RequireNoError(t, err)
	return data
}

// TestOpenHandleWritesHeaderAndPointer tests construction on an empty stream
func TestOpenHandleWritesHeaderAndPointer(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 0, testutil.NewSeqAllocator(500))

	tst.RequireDeepEqual(t, h.SegmentName(), "wal-20240309140507-00")
	tst.RequireDeepEqual(t, h.Size(), int64(record.HeaderSize))
	tst.AssertTrue(t, h.Check(), "expected fresh handle to pass Check")

	hdr, err := record.DecodeHeader(readFile(t, testStream.Path(root, h.SegmentName())))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, hdr.LSN, int64(500))
	tst.RequireDeepEqual(t, hdr.Predecessor, segment.NoPredecessor)
	tst.AssertTrue(t, hdr.CreatedAt.Equal(testTime), "expected header timestamp from clock")

	// the header's LSN is handed out first, then fresh ones
	v, err := h.LSN()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, int64(500))
	v, err = h.LSN()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, int64(501))
}

// TestOpenHandleOnEmptyExistingFile tests that a zero-length segment still gets a header
func TestOpenHandleOnEmptyExistingFile(t *testing.T) {
	root := t.TempDir()
	name := "wal-20240309140507-05"
	tst.RequireNoError(t, os.MkdirAll(testStream.Dir(root), 0o750))
	tst.RequireNoError(t, os.WriteFile(testStream.Path(root, name), nil, 0o600))

	h, err := wal.OpenHandle(wal.HandleConfig{
		Options:   testOptions(root),
		Allocator: testutil.NewSeqAllocator(1),
	}, testStream, name)
	tst.RequireNoError(t, err)
	defer func() { _, _ = h.Close() }()

	tst.RequireDeepEqual(t, h.Size(), int64(record.HeaderSize))
	// not created by this handle, so CURRENT is left alone
	tst.AssertFalse(t, segment.NewPointer(root, testStream).Exists(), "expected no CURRENT")
	tst.AssertFalse(t, h.Check(), "expected Check to fail without CURRENT")
}

// TestAppendRotationBoundary tests that reaching the threshold rotates exactly once
func TestAppendRotationBoundary(t *testing.T) {
	root := t.TempDir()
	// threshold = 200 - 50 = 150; header leaves 106 bytes of room
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(1))
	first := h.SegmentName()

	tst.RequireNoError(t, h.Append(bytes.Repeat([]byte{'a'}, 105)))
	tst.RequireDeepEqual(t, h.SegmentName(), first)
	tst.RequireDeepEqual(t, h.Size(), int64(149))

	tst.RequireNoError(t, h.Append([]byte{'b'}))
	second := h.SegmentName()
	tst.AssertTrue(t, second != first, "expected rotation at threshold")
	tst.RequireDeepEqual(t, h.Size(), int64(record.HeaderSize+1))

	old := readFile(t, testStream.Path(root, first))
	tst.RequireDeepEqual(t, len(old), 149+record.TrailerSize)
	tr, err := record.DecodeTrailer(old[149:])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, tr.Successor, second)

	cur := readFile(t, testStream.Path(root, second))
	hdr, err := record.DecodeHeader(cur[:record.HeaderSize])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, hdr.Predecessor, first)
	tst.RequireDeepEqual(t, cur[record.HeaderSize:], []byte{'b'})

	name, err := segment.NewPointer(root, testStream).Read()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, name, second)
}

// TestAppendOversizedPayload tests that a payload above the threshold is still written after one rotation
func TestAppendOversizedPayload(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(1))
	first := h.SegmentName()

	big := bytes.Repeat([]byte{'z'}, 500)
	tst.RequireNoError(t, h.Append(big))
	second := h.SegmentName()
	tst.AssertTrue(t, second != first, "expected a single rotation")
	tst.RequireDeepEqual(t, h.Size(), int64(record.HeaderSize+500))

	entries, err := os.ReadDir(testStream.Dir(root))
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, len(entries), 3) // two segments + CURRENT
}

// TestRotationLSNReservation tests that a rotation header reserves the next LSN
func TestRotationLSNReservation(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(10))

	v, err := h.LSN()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, int64(10))

	tst.RequireNoError(t, h.Append(bytes.Repeat([]byte{'a'}, 120)))

	hdr, err := record.DecodeHeader(readFile(t, testStream.Path(root, h.SegmentName()))[:record.HeaderSize])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, hdr.LSN, int64(11))

	v, err = h.LSN()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, int64(11))
}

// TestAppendRotatesWhenFileMissing tests recovery from an out-of-band delete on the write path
func TestAppendRotatesWhenFileMissing(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 0, testutil.NewSeqAllocator(1))
	first := h.SegmentName()
	tst.RequireNoError(t, os.Remove(testStream.Path(root, first)))

	tst.RequireNoError(t, h.Append([]byte("x")))
	second := h.SegmentName()
	tst.AssertTrue(t, second != first, "expected rotation to a new segment")
	tst.AssertTrue(t, h.Check(), "expected handle healthy after rotation")

	hdr, err := record.DecodeHeader(readFile(t, testStream.Path(root, second))[:record.HeaderSize])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, hdr.Predecessor, first)
}

// TestHandleCloseIsIdempotent tests that only the first Close reports true
func TestHandleCloseIsIdempotent(t *testing.T) {
	h, _ := openDetached(t, t.TempDir(), 0, testutil.NewSeqAllocator(1))

	ok, err := h.Close()
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected first Close to return true")

	ok, err = h.Close()
	tst.RequireNoError(t, err)
	tst.AssertFalse(t, ok, "expected second Close to return false")

	tst.AssertFalse(t, h.Check(), "expected closed handle to fail Check")
	err = h.Append([]byte("late"))
	tst.AssertTrue(t, errors.Is(err, wal.ErrHandleClosed), "expected ErrHandleClosed")
}

// TestCloseWritesNoTrailer tests that closing leaves the active segment open-ended
func TestCloseWritesNoTrailer(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 0, testutil.NewSeqAllocator(1))
	_, err := h.Commit(context.Background(), stmt(1))
	tst.RequireNoError(t, err)
	_, err = h.Close()
	tst.RequireNoError(t, err)

	dump, err := testutil.ScanSegment(testStream.Path(root, h.SegmentName()))
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, dump.Trailer == nil, "expected no trailer after Close")
	tst.RequireDeepEqual(t, dump.LSNs(), []int64{1})
}

// TestDetachedCommit tests that a handle without a registry commits synchronously
func TestDetachedCommit(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 0, testutil.NewSeqAllocator(7))

	p, err := h.Commit(context.Background(), stmt(1))
	tst.RequireNoError(t, err)
	select {
	case <-p.Done():
	default:
		t.Fatal("expected detached commit to resolve immediately")
	}
	res, err := p.Wait(context.Background())
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, res, wal.Result{LSN: 7, Segment: h.SegmentName()})
	tst.RequireDeepEqual(t, p.Stream(), testStream)
}

// TestHandleErrorFormatting tests that handle errors carry stream coordinates
func TestHandleErrorFormatting(t *testing.T) {
	err := &wal.HandleError{
		Err:     wal.ErrAppendFailed,
		Stream:  segment.StreamID{DatabaseID: 3, TableID: 4},
		Segment: "wal-20240309140507-00",
		LSN:     12,
		Op:      "append",
		Cause:   testutil.NewError("disk full"),
	}
	tst.RequireDeepEqual(t, err.Error(), "append: wal: append failed (db=3 table=4 seg=wal-20240309140507-00 lsn=12): disk full")
	tst.AssertTrue(t, errors.Is(err, wal.ErrAppendFailed), "expected sentinel match")
	tst.AssertNotNil(t, err.CauseErr(), "expected cause")
}

// TestRotationSkipsUnusableSuccessor tests that a successor name that cannot
// be opened is skipped instead of leaving a trailer pointing at it
func TestRotationSkipsUnusableSuccessor(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(1))
	first := h.SegmentName()
	blocked := "wal-20240309140507-01"
	tst.RequireNoError(t, os.Mkdir(testStream.Path(root, blocked), 0o750))

	tst.RequireNoError(t, h.Append(bytes.Repeat([]byte{'a'}, 105)))
	tst.RequireNoError(t, h.Append([]byte{'b'}))
	second := h.SegmentName()
	tst.RequireDeepEqual(t, second, "wal-20240309140507-02")

	tst.RequireNoError(t, h.Append(bytes.Repeat([]byte{'c'}, 105)))
	tst.AssertTrue(t, h.SegmentName() != second, "expected a second rotation")

	old := readFile(t, testStream.Path(root, first))
	tst.RequireDeepEqual(t, len(old), 149+record.TrailerSize)
	tr, err := record.DecodeTrailer(old[149:])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, tr.Successor, second)

	hdr, err := record.DecodeHeader(readFile(t, testStream.Path(root, second))[:record.HeaderSize])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, hdr.Predecessor, first)
}

// TestRotationRollsBackWhenPointerFails tests that a failed CURRENT update
// leaves the old segment without a trailer and the handle on it
func TestRotationRollsBackWhenPointerFails(t *testing.T) {
	root := t.TempDir()
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(1))
	first := h.SegmentName()

	ptr := segment.NewPointer(root, testStream)
	tst.RequireNoError(t, os.Remove(ptr.Path()))
	tst.RequireNoError(t, os.Mkdir(ptr.Path(), 0o750))
	tst.RequireNoError(t, os.WriteFile(filepath.Join(ptr.Path(), "keep"), []byte("x"), 0o600))

	tst.RequireNoError(t, h.Append(bytes.Repeat([]byte{'a'}, 105)))
	err := h.Append([]byte{'b'})
	tst.AssertTrue(t, errors.Is(err, wal.ErrPointerUpdate), "expected ErrPointerUpdate")

	tst.RequireDeepEqual(t, h.SegmentName(), first)
	tst.RequireDeepEqual(t, h.Size(), int64(149))
	tst.RequireDeepEqual(t, len(readFile(t, testStream.Path(root, first))), 149)
	tst.RequireDeepEqual(t, len(readFile(t, testStream.Path(root, "wal-20240309140507-01"))), 0)

	tst.RequireNoError(t, os.RemoveAll(ptr.Path()))
	tst.RequireNoError(t, h.Append([]byte{'b'}))
	second := h.SegmentName()
	tst.AssertTrue(t, second != first, "expected rotation once CURRENT is writable")
	tst.RequireDeepEqual(t, h.Size(), int64(record.HeaderSize+1))

	old := readFile(t, testStream.Path(root, first))
	tst.RequireDeepEqual(t, len(old), 149+record.TrailerSize)
	tr, err := record.DecodeTrailer(old[149:])
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, tr.Successor, second)

	name, err := ptr.Read()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, name, second)
}

// TestRotationNeverReusesRetiredSegment tests that once every name of the
// current second is taken, rotation fails instead of reopening an old segment
func TestRotationNeverReusesRetiredSegment(t *testing.T) {
	root := t.TempDir()
	// header 44 + one 100-byte record fits under 150; a second record rotates
	h, _ := openDetached(t, root, 200, testutil.NewSeqAllocator(1))
	payload := bytes.Repeat([]byte{'p'}, 100-record.RecordHeaderSize)

	appendRecord := func() error {
		v, err := h.LSN()
		tst.RequireNoError(t, err)
		data, err := record.EncodeRecord(v, payload)
		tst.RequireNoError(t, err)
		return h.Append(data)
	}

	for i := 0; i < segment.NamesPerSecond; i++ {
		tst.RequireNoError(t, appendRecord())
	}
	tst.RequireDeepEqual(t, h.SegmentName(), "wal-20240309140507-99")

	err := appendRecord()
	tst.AssertTrue(t, errors.Is(err, wal.ErrSegmentRotate), "expected ErrSegmentRotate")
	var he *wal.HandleError
	tst.AssertTrue(t, errors.As(err, &he), "expected a HandleError")
	if he != nil {
		tst.AssertTrue(t, errors.Is(he.CauseErr(), wal.ErrNoFreeSegment), "expected ErrNoFreeSegment cause")
	}
	tst.RequireDeepEqual(t, h.SegmentName(), "wal-20240309140507-99")
	tst.AssertTrue(t, h.Check(), "expected handle to stay usable")

	name, err := segment.NewPointer(root, testStream).Read()
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, name, h.SegmentName())

	chain, err := testutil.ScanStream(root, testStream)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, len(chain), segment.NamesPerSecond)
	testutil.RequireChain(t, chain)
	for _, d := range chain {
		tst.RequireDeepEqual(t, len(d.Records), 1)
	}
}
