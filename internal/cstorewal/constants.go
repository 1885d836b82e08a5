package cstorewal

const (
	DefaultRoot = "storage/cstore/wal"

	// DefaultMaxSegmentBytes is the single rotation threshold for a segment.
	DefaultMaxSegmentBytes int64 = 1 << 20
	// DefaultRotationMargin is subtracted from MaxSegmentBytes before comparing.
	DefaultRotationMargin int64 = 50

	DefaultQueueSize = 100
)

// Writer modes
const (
	WriterModePerStream = "per-stream"
	WriterModeShared    = "shared"
)

// Log file defaults
const (
	DefaultAppDir        = ".cstorewal"
	DefaultLogDir        = "logs"
	DefaultLogFileName   = "cstorewal.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
	DefaultLogLevel      = "info"
)

const (
	ConfigFileName = "cstorewal.json"
	ConfigVersion  = 1
)
