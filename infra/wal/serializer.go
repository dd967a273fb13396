package wal

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrCorruptRecord = errors.New("wal: corrupted record")

// Serializer turns a Record into a segment frame body and back.
type Serializer interface {
	Encode(rec *Record) ([]byte, error)
	Decode(data []byte) (*Record, error)
}

// Record body field numbers (protobuf wire format).
const (
	fieldType = 1
	fieldSeq  = 2
	fieldTime = 3
	fieldData = 4
)

// ProtoSerializer encodes records in protobuf wire format via protowire:
// no generated code, same bytes a .proto with these field numbers would give.
type ProtoSerializer struct{}

func (ProtoSerializer) Encode(rec *Record) ([]byte, error) {
	buf := make([]byte, 0, 16+len(rec.Data))
	buf = protowire.AppendTag(buf, fieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(rec.Type))
	buf = protowire.AppendTag(buf, fieldSeq, protowire.VarintType)
	buf = protowire.AppendVarint(buf, rec.Seq)
	buf = protowire.AppendTag(buf, fieldTime, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(rec.Time))
	if len(rec.Data) > 0 {
		buf = protowire.AppendTag(buf, fieldData, protowire.BytesType)
		buf = protowire.AppendBytes(buf, rec.Data)
	}
	return buf, nil
}

func (ProtoSerializer) Decode(data []byte) (*Record, error) {
	rec := &Record{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad tag", ErrCorruptRecord)
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: type field", ErrCorruptRecord)
			}
			rec.Type = RecordType(v)
			data = data[n:]
		case num == fieldSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: seq field", ErrCorruptRecord)
			}
			rec.Seq = v
			data = data[n:]
		case num == fieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: time field", ErrCorruptRecord)
			}
			rec.Time = protowire.DecodeZigZag(v)
			data = data[n:]
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: data field", ErrCorruptRecord)
			}
			rec.Data = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: unknown field", ErrCorruptRecord)
			}
			data = data[n:]
		}
	}
	return rec, nil
}
