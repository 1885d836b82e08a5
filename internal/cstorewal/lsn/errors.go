package lsn

import "errors"

var (
	// Returned when the 7-digit suffix wrapped inside a single clock second.
	ErrSequenceExhausted = errors.New("lsn: sequence exhausted for current second")

	// Returned when the clock moved backwards past the last issued LSN.
	ErrClockRegression = errors.New("lsn: clock regression")

	// Returned when the composed value does not fit an int64.
	ErrOutOfRange = errors.New("lsn: value out of range")
)

type AllocError struct {
	Err   error
	Last  int64 // last LSN handed out
	Have  int64 // candidate that was rejected (0 if it could not be parsed)
	Cause error
}

func (e *AllocError) Error() string { return e.Err.Error() }
func (e *AllocError) Unwrap() error { return e.Err }

func (e *AllocError) CauseErr() error { return e.Cause }
