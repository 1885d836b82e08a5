package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions = errors.New("engine: invalid options")
	ErrOpenFailed     = errors.New("engine: open failed")
	ErrClosed         = errors.New("engine: closed")
	ErrCloseFailed    = errors.New("engine: close failed")
	ErrCommitFailed   = errors.New("engine: commit failed")
	ErrLoadFailed     = errors.New("engine: load failed")
	ErrStatusFailed   = errors.New("engine: status failed")
)

// EngineError wraps engine-layer failures with stable sentinels for errors.Is,
// while preserving Cause for inspection/logging.
type EngineError struct {
	Err error

	// Op describes the operation: "open", "commit", "load", "status", "close".
	Op string

	// Root is the WAL root directory.
	Root string

	Cause error
}

func (e *EngineError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Root != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Root)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) CauseErr() error { return e.Cause }

func wrapEngineErr(op string, sentinel error, root string, cause error) error {
	return &EngineError{
		Err:   sentinel,
		Op:    op,
		Root:  root,
		Cause: cause,
	}
}
