package testutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
)

// SegmentDump is the decoded content of one segment file.
type SegmentDump struct {
	Name    string
	Size    int64
	Header  record.Header
	Records []record.LogRecord
	// Trailer is nil for the active segment.
	Trailer *record.Trailer
}

// LSNs returns the record LSNs in file order.
func (d SegmentDump) LSNs() []int64 {
	out := make([]int64, 0, len(d.Records))
	for _, r := range d.Records {
		out = append(out, r.LSN)
	}
	return out
}

// Statements decodes every record payload as a statement.
func (d SegmentDump) Statements() ([]record.Statement, error) {
	out := make([]record.Statement, 0, len(d.Records))
	for _, r := range d.Records {
		s, err := record.DecodeStatement(r.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ScanSegment reads header, records and optional trailer of the segment at path.
func ScanSegment(path string) (SegmentDump, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return SegmentDump{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return SegmentDump{}, err
	}

	dump := SegmentDump{Name: info.Name(), Size: info.Size()}
	rr := record.NewReader(f)
	dump.Header, err = rr.ReadHeader()
	if err != nil {
		return dump, fmt.Errorf("%s: header: %w", dump.Name, err)
	}
	for {
		b, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return dump, nil
		}
		if err != nil {
			return dump, fmt.Errorf("%s: %w", dump.Name, err)
		}
		if b.Trailer != nil {
			dump.Trailer = b.Trailer
			continue
		}
		dump.Records = append(dump.Records, *b.Record)
	}
}

// ScanStream walks the segment chain of id backwards from CURRENT through
// header predecessors and returns the segments oldest first.
func ScanStream(root string, id segment.StreamID) ([]SegmentDump, error) {
	name, err := segment.NewPointer(root, id).Read()
	if err != nil {
		return nil, err
	}

	var chain []SegmentDump
	seen := map[string]bool{}
	for name != segment.NoPredecessor {
		if seen[name] {
			return nil, fmt.Errorf("segment chain loops at %s", name)
		}
		seen[name] = true

		dump, err := ScanSegment(id.Path(root, name))
		if err != nil {
			return nil, err
		}
		chain = append(chain, dump)
		name = dump.Header.Predecessor
	}
	slices.Reverse(chain)
	return chain, nil
}

// AllLSNs concatenates the record LSNs of a chain.
func AllLSNs(chain []SegmentDump) []int64 {
	var out []int64
	for _, d := range chain {
		out = append(out, d.LSNs()...)
	}
	return out
}

// RequireChain asserts the chain is doubly linked, every rotated segment has
// a trailer, only the last is open, and record LSNs strictly increase.
func RequireChain(t *testing.T, chain []SegmentDump) {
	t.Helper()
	tst.AssertTrue(t, len(chain) > 0, "expected at least one segment")
	tst.RequireDeepEqual(t, chain[0].Header.Predecessor, segment.NoPredecessor)

	for i := 1; i < len(chain); i++ {
		prev, cur := chain[i-1], chain[i]
		tst.AssertNotNil(t, prev.Trailer, "expected trailer on rotated segment "+prev.Name)
		if prev.Trailer != nil {
			tst.RequireDeepEqual(t, prev.Trailer.Successor, cur.Name)
		}
		tst.RequireDeepEqual(t, cur.Header.Predecessor, prev.Name)
	}
	last := chain[len(chain)-1]
	tst.AssertTrue(t, last.Trailer == nil, "expected active segment to have no trailer")

	lsns := AllLSNs(chain)
	for i := 1; i < len(lsns); i++ {
		tst.AssertTrue(t, lsns[i] > lsns[i-1], fmt.Sprintf("lsn %d at %d not above %d", lsns[i], i, lsns[i-1]))
	}
}
