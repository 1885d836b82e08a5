package record

import (
	"encoding/binary"

	"github.com/julianstephens/go-utils/checksum"
)

// ComputeChecksum computes the CRC32-C checksum with the Castagnoli polynomial for the given data.
func ComputeChecksum(data []byte) uint32 {
	return checksum.CRC32C(data)
}

// VerifyChecksum reports whether rec.CRC matches its contents.
// The checksum covers version, lsn, payload length and payload.
func VerifyChecksum(rec *LogRecord) bool {
	if rec == nil {
		return false
	}
	return checksum.VerifyCRC32C(checksumInput(rec), rec.CRC)
}

// UpdateChecksum recalculates rec.CRC from its current contents.
func UpdateChecksum(rec *LogRecord) {
	if rec == nil {
		return
	}
	rec.CRC = ComputeChecksum(checksumInput(rec))
}

func checksumInput(rec *LogRecord) []byte {
	data := make([]byte, 1+8+4+len(rec.Payload))
	data[0] = rec.Version
	binary.LittleEndian.PutUint64(data[1:9], uint64(rec.LSN))             //nolint:gosec
	binary.LittleEndian.PutUint32(data[9:13], uint32(len(rec.Payload))) //nolint:gosec
	copy(data[13:], rec.Payload)
	return data
}
