package wal

import (
	"context"
	"sync"

	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
)

// Result is the outcome of a committed statement.
type Result struct {
	LSN int64
	// Segment is the segment the record was appended to.
	Segment string
}

// Pending is the caller's view of a queued statement. It resolves exactly once.
type Pending struct {
	stream segment.StreamID
	lsn    int64

	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

func newPending(id segment.StreamID, lsnValue int64) *Pending {
	return &Pending{
		stream: id,
		lsn:    lsnValue,
		done:   make(chan struct{}),
	}
}

// LSN returns the sequence number reserved for the statement. It is known
// as soon as Commit returns.
func (p *Pending) LSN() int64 {
	return p.lsn
}

// Stream returns the stream the statement was committed to.
func (p *Pending) Stream() segment.StreamID {
	return p.stream
}

// Done is closed once the writer has processed the statement.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the statement is written or ctx is done. On ctx expiry
// the statement may still be written later.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return Result{LSN: p.lsn}, ctx.Err()
	}
}

func (p *Pending) complete(segmentName string, err error) {
	p.once.Do(func() {
		p.res = Result{LSN: p.lsn, Segment: segmentName}
		p.err = err
		close(p.done)
	})
}
