package wal_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/cstorewal/wal"
	"github.com/julianstephens/cstorewal/internal/testutil"
)

var (
	testStream = segment.StreamID{DatabaseID: 1, TableID: 100}
	testTime   = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
)

func testOptions(root string) cstorewal.Options {
	opts := cstorewal.DefaultOptions()
	opts.Root = root
	return opts
}

func stmt(i int) record.Statement {
	return record.Statement{ProcessID: "proc-1", TxnID: int64(i), SQL: fmt.Sprintf("insert into t values (%d)", i)}
}

// newTestRegistry builds a registry with deterministic names and LSNs.
func newTestRegistry(t *testing.T, opts cstorewal.Options, alloc *testutil.SeqAllocator) *wal.Registry {
	t.Helper()
	r, err := wal.NewRegistry(opts, nil,
		wal.WithAllocator(alloc),
		wal.WithNamer(segment.NewNamer(testutil.FixedClock(testTime))),
		wal.WithClock(testutil.FixedClock(testTime)),
	)
	tst.RequireNoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func commitAndWait(t *testing.T, r *wal.Registry, id segment.StreamID, s record.Statement) wal.Result {
	t.Helper()
	p, err := r.Commit(context.Background(), id, s)
	tst.RequireNoError(t, err)
	res, err := p.Wait(context.Background())
	tst.RequireNoError(t, err)
	return res
}
