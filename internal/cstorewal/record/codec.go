package record

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
)

func validChainName(name string) bool {
	return name == segment.NoPredecessor || segment.IsValidName(name)
}

// EncodeHeader encodes h into its fixed 44-byte form. A zero CreatedAt is
// stamped with the current time.
func EncodeHeader(h Header) ([]byte, error) {
	if h.Version != Version {
		return nil, &ParseError{Kind: KindInvalidVersion, Block: "header", RawFlag: h.Version, Err: ErrInvalidVersion}
	}
	if !validChainName(h.Predecessor) {
		return nil, &ParseError{
			Kind:  KindInvalidName,
			Block: "header",
			Want:  SegmentNameSize,
			Have:  len(h.Predecessor),
			Err:   ErrInvalidName,
		}
	}
	created := h.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	data := make([]byte, HeaderSize)
	data[0] = h.Version
	binary.LittleEndian.PutUint64(data[1:9], uint64(h.LSN)) //nolint:gosec
	copy(data[9:9+SegmentNameSize], h.Predecessor)
	copy(data[9+SegmentNameSize:], created.UTC().Format(createdAtLayout))
	return data, nil
}

// DecodeHeader decodes a header from exactly HeaderSize bytes.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &ParseError{
			Kind:  KindTruncated,
			Block: "header",
			Want:  HeaderSize,
			Have:  len(data),
			Err:   io.ErrUnexpectedEOF,
		}
	}
	if len(data) != HeaderSize {
		return Header{}, &ParseError{Kind: KindCorrupt, Block: "header", Want: HeaderSize, Have: len(data), Err: ErrCorrupt}
	}
	if data[0] != Version {
		return Header{}, &ParseError{Kind: KindInvalidVersion, Block: "header", RawFlag: data[0], Err: ErrInvalidVersion}
	}

	prev := string(data[9 : 9+SegmentNameSize])
	if !validChainName(prev) {
		return Header{}, &ParseError{Kind: KindInvalidName, Block: "header", RawFlag: data[0], Err: ErrInvalidName}
	}
	created, err := time.ParseInLocation(createdAtLayout, string(data[9+SegmentNameSize:]), time.UTC)
	if err != nil {
		return Header{}, &ParseError{Kind: KindCorrupt, Block: "header", RawFlag: data[0], Err: err}
	}

	return Header{
		Version:     data[0],
		LSN:         int64(binary.LittleEndian.Uint64(data[1:9])), //nolint:gosec
		Predecessor: prev,
		CreatedAt:   created,
	}, nil
}

// EncodeTrailer encodes t into its fixed 32-byte form.
func EncodeTrailer(t Trailer) ([]byte, error) {
	if !segment.IsValidName(t.Successor) {
		return nil, &ParseError{
			Kind:  KindInvalidName,
			Block: "trailer",
			Want:  SegmentNameSize,
			Have:  len(t.Successor),
			Err:   ErrInvalidName,
		}
	}
	data := make([]byte, TrailerSize)
	data[0] = TrailerFlag
	copy(data[1:1+SegmentNameSize], t.Successor)
	return data, nil
}

// DecodeTrailer decodes a trailer from exactly TrailerSize bytes.
func DecodeTrailer(data []byte) (Trailer, error) {
	if len(data) < TrailerSize {
		return Trailer{}, &ParseError{
			Kind:  KindTruncated,
			Block: "trailer",
			Want:  TrailerSize,
			Have:  len(data),
			Err:   io.ErrUnexpectedEOF,
		}
	}
	if len(data) != TrailerSize {
		return Trailer{}, &ParseError{Kind: KindCorrupt, Block: "trailer", Want: TrailerSize, Have: len(data), Err: ErrCorrupt}
	}
	if data[0] != TrailerFlag {
		return Trailer{}, &ParseError{Kind: KindCorrupt, Block: "trailer", RawFlag: data[0], Err: ErrCorrupt}
	}
	next := string(data[1 : 1+SegmentNameSize])
	if !segment.IsValidName(next) {
		return Trailer{}, &ParseError{Kind: KindInvalidName, Block: "trailer", RawFlag: data[0], Err: ErrInvalidName}
	}
	for _, b := range data[1+SegmentNameSize:] {
		if b != 0 {
			return Trailer{}, &ParseError{Kind: KindCorrupt, Block: "trailer", RawFlag: data[0], Err: ErrCorrupt}
		}
	}
	return Trailer{Successor: next}, nil
}

// EncodeRecord frames payload as a version-1 log record carrying lsn.
func EncodeRecord(lsn int64, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &ParseError{
			Kind:        KindTooLarge,
			Block:       "record",
			DeclaredLen: uint32(len(payload)), //nolint:gosec
			Want:        MaxPayloadSize,
			Have:        len(payload),
			Err:         ErrTooLarge,
		}
	}

	rec := LogRecord{Version: Version, LSN: lsn, Payload: payload}
	UpdateChecksum(&rec)

	data := make([]byte, RecordHeaderSize+len(payload))
	data[0] = rec.Version
	binary.LittleEndian.PutUint64(data[1:9], uint64(lsn))            //nolint:gosec
	binary.LittleEndian.PutUint32(data[9:13], uint32(len(payload))) //nolint:gosec
	binary.LittleEndian.PutUint32(data[13:17], rec.CRC)
	copy(data[RecordHeaderSize:], payload)
	return data, nil
}

// DecodeRecord decodes exactly one record from data.
func DecodeRecord(data []byte) (LogRecord, error) {
	if len(data) < RecordHeaderSize {
		return LogRecord{}, &ParseError{
			Kind:  KindTruncated,
			Block: "record",
			Want:  RecordHeaderSize,
			Have:  len(data),
			Err:   io.ErrUnexpectedEOF,
		}
	}
	rec, payloadLen, err := parseRecordHeader(data[:RecordHeaderSize])
	if err != nil {
		return LogRecord{}, err
	}

	want := RecordHeaderSize + int(payloadLen)
	if len(data) < want {
		return LogRecord{}, &ParseError{
			Kind:        KindTruncated,
			Block:       "record",
			DeclaredLen: payloadLen,
			RawFlag:     data[0],
			Want:        want,
			Have:        len(data),
			Err:         io.ErrUnexpectedEOF,
		}
	}
	if len(data) != want {
		return LogRecord{}, &ParseError{
			Kind:        KindCorrupt,
			Block:       "record",
			DeclaredLen: payloadLen,
			RawFlag:     data[0],
			Want:        want,
			Have:        len(data),
			Err:         ErrCorrupt,
		}
	}

	rec.Payload = data[RecordHeaderSize:want]
	if !VerifyChecksum(&rec) {
		return LogRecord{}, &ParseError{
			Kind:        KindChecksumMismatch,
			Block:       "record",
			DeclaredLen: payloadLen,
			RawFlag:     data[0],
			Err:         ErrChecksumMismatch,
		}
	}
	return rec, nil
}

func parseRecordHeader(hdr []byte) (LogRecord, uint32, error) {
	if hdr[0] != Version {
		return LogRecord{}, 0, &ParseError{Kind: KindInvalidVersion, Block: "record", RawFlag: hdr[0], Err: ErrInvalidVersion}
	}
	payloadLen := binary.LittleEndian.Uint32(hdr[9:13])
	if payloadLen > MaxPayloadSize {
		return LogRecord{}, 0, &ParseError{
			Kind:        KindTooLarge,
			Block:       "record",
			DeclaredLen: payloadLen,
			RawFlag:     hdr[0],
			Want:        MaxPayloadSize,
			Have:        int(payloadLen),
			Err:         ErrTooLarge,
		}
	}
	return LogRecord{
		Version: hdr[0],
		LSN:     int64(binary.LittleEndian.Uint64(hdr[1:9])), //nolint:gosec
		CRC:     binary.LittleEndian.Uint32(hdr[13:17]),
	}, payloadLen, nil
}
