// Package lsn hands out log sequence numbers.
//
// An LSN is the decimal concatenation of a UTC yyMMddHHmmss timestamp and a
// 7-digit suffix taken from a process-wide counter modulo 10,000,000, parsed
// as an int64. Values are strictly increasing for the life of a process; they
// are not unique across processes or machines.
package lsn

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	prefixLayout = "060102150405"
	suffixDigits = 7
	suffixModulo = 10_000_000
)

// Allocator hands out strictly increasing LSNs.
type Allocator interface {
	// Next reserves and returns the next LSN.
	Next() (int64, error)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// ClockAllocator is the default time-seeded implementation.
type ClockAllocator struct {
	mu      sync.Mutex
	clock   Clock
	counter uint64
	last    int64
}

// NewClockAllocator builds an allocator reading clock; nil means time.Now.
func NewClockAllocator(clock Clock) *ClockAllocator {
	if clock == nil {
		clock = time.Now
	}
	return &ClockAllocator{clock: clock}
}

// Next reserves and returns the next LSN.
func (a *ClockAllocator) Next() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prefix := a.clock().UTC().Format(prefixLayout)
	seq := a.counter % suffixModulo
	a.counter++

	raw := prefix + fmt.Sprintf("%0*d", suffixDigits, seq)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &AllocError{Err: ErrOutOfRange, Last: a.last, Cause: err}
	}

	if v <= a.last {
		sentinel := ErrSequenceExhausted
		if v/suffixModulo < a.last/suffixModulo {
			sentinel = ErrClockRegression
		}
		return 0, &AllocError{Err: sentinel, Last: a.last, Have: v}
	}

	a.last = v
	return v, nil
}

// Last returns the most recent LSN handed out, or 0.
func (a *ClockAllocator) Last() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Default is the process-wide allocator shared by every stream.
var Default = NewClockAllocator(nil)

// Next reserves an LSN from Default.
func Next() (int64, error) {
	return Default.Next()
}
