package testutil

import (
	"sync"
	"time"
)

// Error is a simple test error implementation
type Error struct {
	Message string
}

// Error returns the error message
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new test error with the given message
func NewError(msg string) *Error {
	return &Error{Message: msg}
}

// SeqAllocator is a deterministic lsn.Allocator counting up from a start value.
type SeqAllocator struct {
	mu        sync.Mutex
	next      int64
	calls     int
	failAfter int // -1 means never fail
}

// NewSeqAllocator creates an allocator whose first value is start.
func NewSeqAllocator(start int64) *SeqAllocator {
	return &SeqAllocator{next: start, failAfter: -1}
}

// FailAfter makes every call after the first n return an error.
func (a *SeqAllocator) FailAfter(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failAfter = n
}

// Next returns the next value and increments the counter.
func (a *SeqAllocator) Next() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failAfter >= 0 && a.calls >= a.failAfter {
		return 0, NewError("sequence allocator exhausted")
	}
	a.calls++
	v := a.next
	a.next++
	return v, nil
}

// Peek returns the next value without consuming it.
func (a *SeqAllocator) Peek() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Calls returns how many values have been handed out.
func (a *SeqAllocator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// FixedClock always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// StepClock advances by step on every call, starting at start.
func StepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start.Add(-step)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(step)
		return cur
	}
}
