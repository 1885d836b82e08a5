package logger

import (
	"errors"
	"fmt"
)

var (
	ErrLogCreate = errors.New("logger: create error")
	ErrLogOpen   = errors.New("logger: open error")
	ErrLogClose  = errors.New("logger: close error")
)

// LoggerError reports a failure to set up or release a log sink.
// Err is one of the sentinels above; Cause is the underlying failure.
type LoggerError struct {
	Op    string // e.g. "create file logger", "close"
	Err   error
	Cause error
	Path  string // log directory or file, when known
}

func (e *LoggerError) Error() string {
	msg := e.Op + ": " + e.Err.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoggerError) Unwrap() error { return e.Err }

func (e *LoggerError) CauseErr() error { return e.Cause }

func wrapLoggerErr(op string, err, cause error, path string) error {
	return &LoggerError{
		Op:    op,
		Err:   err,
		Cause: cause,
		Path:  path,
	}
}
