package record

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrTruncated        = errors.New("record: truncated")
	ErrCorrupt          = errors.New("record: corrupt")
	ErrTooLarge         = errors.New("record: too large")
	ErrInvalidVersion   = errors.New("record: invalid version")
	ErrInvalidName      = errors.New("record: invalid segment name")
	ErrChecksumMismatch = errors.New("record: checksum mismatch")
)

type ParseErrorKind uint8

const (
	KindTruncated ParseErrorKind = iota
	KindTooLarge
	KindChecksumMismatch
	KindInvalidVersion
	KindInvalidName
	KindCorrupt
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindTooLarge:
		return "too_large"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindInvalidVersion:
		return "invalid_version"
	case KindInvalidName:
		return "invalid_name"
	case KindCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// ParseError describes a block that could not be decoded.
type ParseError struct {
	Kind ParseErrorKind
	// Block is "header", "record" or "trailer".
	Block string
	// Offset is the starting byte offset of the block within its segment.
	Offset      int64
	DeclaredLen uint32
	// RawFlag is the first byte of the block, if read.
	RawFlag byte
	Want    int
	Have    int
	Err     error
}

func (e *ParseError) Error() string {
	cause := "<nil>"
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return fmt.Sprintf("record parse error block=%s kind=%s offset=%d len=%d flag=0x%02x want=%d have=%d: %s",
		e.Block, e.Kind.String(), e.Offset, e.DeclaredLen, e.RawFlag, e.Want, e.Have, cause)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrTruncated:
		return e.Kind == KindTruncated
	case ErrTooLarge:
		return e.Kind == KindTooLarge
	case ErrChecksumMismatch:
		return e.Kind == KindChecksumMismatch
	case ErrInvalidVersion:
		return e.Kind == KindInvalidVersion
	case ErrInvalidName:
		return e.Kind == KindInvalidName
	case ErrCorrupt:
		return e.Kind == KindCorrupt
	}
	return false
}

func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func IsCleanEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func IsTruncation(err error) bool {
	return errors.Is(err, ErrTruncated)
}

func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorrupt) || errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrInvalidVersion) || errors.Is(err, ErrInvalidName)
}

var (
	ErrCodecEncode = errors.New("record: statement encode failed")
	ErrCodecDecode = errors.New("record: statement decode failed")
)

// CodecError wraps statement payload codec failures.
type CodecError struct {
	Op  string // "encode" or "decode"
	Len int    // payload length involved
	Err error
	// Cause is the msgpack error, if any.
	Cause error
}

func (e *CodecError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s len=%d", e.Err.Error(), e.Len)
	}
	return fmt.Sprintf("%s len=%d: %v", e.Err.Error(), e.Len, e.Cause)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) CauseErr() error { return e.Cause }
