package caskdb

import (
	"fmt"

	"github.com/viant/bintly"
)

// record is a single log entry. A tombstone carries no value.
type record struct {
	timestamp int64
	key       []byte
	value     []byte
	hasValue  bool
}

func (r *record) tombstone() bool {
	return !r.hasValue
}

// EncodeBinary encodes the record to a binary stream.
func (r *record) EncodeBinary(stream *bintly.Writer) error {
	stream.Int64(r.timestamp)
	stream.Uint8s(r.key)
	if !r.hasValue {
		stream.Uint8(0)
		return nil
	}
	stream.Uint8(1)
	stream.Uint8s(r.value)
	return nil
}

// DecodeBinary decodes the record from a binary stream.
func (r *record) DecodeBinary(stream *bintly.Reader) error {
	stream.Int64(&r.timestamp)
	stream.Uint8s(&r.key)
	var present uint8
	stream.Uint8(&present)
	switch present {
	case 0:
		r.hasValue = false
	case 1:
		r.hasValue = true
		stream.Uint8s(&r.value)
	default:
		return fmt.Errorf("%w: bad value flag %d", ErrCorruptRecord, present)
	}
	return nil
}

var (
	encoders = bintly.NewWriters()
	decoders = bintly.NewReaders()
)

// encodeRecord serializes r into a self-describing payload block.
func encodeRecord(r *record) ([]byte, error) {
	w := encoders.Get()
	defer encoders.Put(w)
	if err := r.EncodeBinary(w); err != nil {
		return nil, err
	}
	data := w.Bytes()
	payload := make([]byte, len(data))
	copy(payload, data)
	return payload, nil
}

// decodeRecord deserializes a payload block produced by encodeRecord.
func decodeRecord(payload []byte) (rec *record, err error) {
	// bintly readers fault on truncated or garbled input; surface that as a
	// corrupt record instead of unwinding through the caller.
	defer func() {
		if p := recover(); p != nil {
			rec = nil
			err = fmt.Errorf("%w: %v", ErrCorruptRecord, p)
		}
	}()

	reader := decoders.Get()
	defer decoders.Put(reader)
	if ferr := reader.FromBytes(payload); ferr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, ferr)
	}
	out := &record{}
	if derr := out.DecodeBinary(reader); derr != nil {
		return nil, derr
	}
	return out, nil
}
