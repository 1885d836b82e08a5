package record

import "time"

const (
	// Version is the only block version written by this package.
	Version uint8 = 1

	// TrailerFlag marks the first byte of a segment trailer.
	TrailerFlag byte = 0xFB

	// SegmentNameSize is the fixed width of a segment name on disk.
	SegmentNameSize = 21
	// CreatedAtSize is the width of the yyyyMMddHHmmss header timestamp.
	CreatedAtSize = 14

	createdAtLayout = "20060102150405"

	HeaderSize        = 1 + 8 + SegmentNameSize + CreatedAtSize // 44
	TrailerFillerSize = 10
	TrailerSize       = 1 + SegmentNameSize + TrailerFillerSize // 32

	RecordHeaderSize = 1 + 8 + 4 + 4 // version, lsn, payloadLen, crc
	MaxPayloadSize   = 16 * 1024 * 1024
)

// Header opens every segment.
type Header struct {
	Version uint8 `json:"version"`
	// LSN is the sequence number reserved when the segment was opened.
	LSN int64 `json:"lsn"`
	// Predecessor names the previous segment of the stream, or is all dashes.
	Predecessor string    `json:"predecessor"`
	CreatedAt   time.Time `json:"created_at"`
}

// Trailer closes a rotated segment and names its successor.
type Trailer struct {
	Successor string `json:"successor"`
}

// LogRecord is one framed record as stored in a segment.
type LogRecord struct {
	Version uint8  `json:"version"`
	LSN     int64  `json:"lsn"`
	Payload []byte `json:"payload"`
	CRC     uint32 `json:"crc"`
}

// Size is the encoded size of r in bytes.
func (r LogRecord) Size() int64 {
	return EncodedRecordSize(len(r.Payload))
}

// Statement is the logical payload committed by callers.
type Statement struct {
	ProcessID string `msgpack:"pid" json:"pid"`
	TxnID     int64  `msgpack:"tid" json:"tid"`
	SQL       string `msgpack:"sql" json:"sql"`
}

// EncodedRecordSize returns the on-disk size of a record carrying payloadLen bytes.
func EncodedRecordSize(payloadLen int) int64 {
	return RecordHeaderSize + int64(payloadLen)
}
