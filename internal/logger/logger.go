// Package logger is the logging surface of the WAL engine. Handles, writer
// goroutines and the registry log through Logger with key/value fields
// (db, table, segment, lsn) so one stream's rotations and append failures
// can be followed across files.
package logger

// Logger is implemented by every sink the engine writes to.
// Fields are alternating keys and values.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	// Error logs err under the "error" key ahead of fields.
	Error(msg string, err error, fields ...interface{})
}

// Closeable is implemented by loggers that hold files open. The CLI closes
// its logger after the command returns.
type Closeable interface {
	Close() error
}

// NoOpLogger discards everything. Engines and registries opened without a
// logger use it.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}

func (NoOpLogger) Info(string, ...interface{}) {}

func (NoOpLogger) Warn(string, ...interface{}) {}

func (NoOpLogger) Error(string, error, ...interface{}) {}

var _ Logger = NoOpLogger{}
