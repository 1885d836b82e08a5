package record

import "github.com/vmihailenco/msgpack/v5"

// EncodeStatement serializes s as a msgpack map {pid, tid, sql}.
func EncodeStatement(s Statement) ([]byte, error) {
	b, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, &CodecError{Op: "encode", Len: len(s.SQL), Err: ErrCodecEncode, Cause: err}
	}
	return b, nil
}

// DecodeStatement parses a payload written by EncodeStatement.
func DecodeStatement(payload []byte) (Statement, error) {
	var s Statement
	if err := msgpack.Unmarshal(payload, &s); err != nil {
		return Statement{}, &CodecError{Op: "decode", Len: len(payload), Err: ErrCodecDecode, Cause: err}
	}
	return s, nil
}
