package record

import (
	"errors"
	"io"
)

// Block is one element read from a segment after its header: either a
// record or the closing trailer.
type Block struct {
	Record  *LogRecord
	Trailer *Trailer
	Offset  int64
	Size    int64
}

// Reader walks the blocks of a single segment.
type Reader struct {
	r      io.Reader
	offset int64
	done   bool
}

// NewReader creates a Reader positioned at the start of a segment.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadHeader reads the segment header. It must be called first.
func (rr *Reader) ReadHeader() (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(rr.r, buf)
	rr.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Header{}, io.EOF
		}
		return Header{}, &ParseError{Kind: KindTruncated, Block: "header", Want: HeaderSize, Have: n, Err: io.ErrUnexpectedEOF}
	}
	return DecodeHeader(buf)
}

// Next returns the next block. It returns io.EOF at the end of an open
// segment and after the trailer of a closed one.
func (rr *Reader) Next() (Block, error) {
	if rr.done {
		return Block{}, io.EOF
	}
	start := rr.offset

	first := make([]byte, 1)
	n, err := io.ReadFull(rr.r, first)
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Block{}, io.EOF
		}
		return Block{}, rr.truncated("record", start, 1, n)
	}
	rr.offset++

	if first[0] == TrailerFlag {
		rest := make([]byte, TrailerSize-1)
		n, err = io.ReadFull(rr.r, rest)
		rr.offset += int64(n)
		if err != nil {
			return Block{}, rr.truncated("trailer", start, TrailerSize, n+1)
		}
		t, err := DecodeTrailer(append(first, rest...))
		if err != nil {
			return Block{}, withOffset(err, start)
		}
		rr.done = true
		return Block{Trailer: &t, Offset: start, Size: TrailerSize}, nil
	}

	hdr := make([]byte, RecordHeaderSize)
	hdr[0] = first[0]
	n, err = io.ReadFull(rr.r, hdr[1:])
	rr.offset += int64(n)
	if err != nil {
		return Block{}, rr.truncated("record", start, RecordHeaderSize, n+1)
	}
	_, payloadLen, err := parseRecordHeader(hdr)
	if err != nil {
		return Block{}, withOffset(err, start)
	}

	body := make([]byte, RecordHeaderSize+int(payloadLen))
	copy(body, hdr)
	n, err = io.ReadFull(rr.r, body[RecordHeaderSize:])
	rr.offset += int64(n)
	if err != nil {
		pe := rr.truncated("record", start, len(body), RecordHeaderSize+n)
		pe.DeclaredLen = payloadLen
		return Block{}, pe
	}
	rec, err := DecodeRecord(body)
	if err != nil {
		return Block{}, withOffset(err, start)
	}
	return Block{Record: &rec, Offset: start, Size: int64(len(body))}, nil
}

// Offset returns the current offset in the underlying reader.
func (rr *Reader) Offset() int64 {
	return rr.offset
}

func (rr *Reader) truncated(block string, start int64, want, have int) *ParseError {
	return &ParseError{
		Kind:   KindTruncated,
		Block:  block,
		Offset: start,
		Want:   want,
		Have:   have,
		Err:    io.ErrUnexpectedEOF,
	}
}

func withOffset(err error, offset int64) error {
	if pe, ok := AsParseError(err); ok {
		pe.Offset = offset
		return pe
	}
	return err
}
