package service

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"kestrel/domain/book"
)

// Command payloads carried in entry-WAL records, protobuf wire format.
// Replay decodes these and re-applies them to an empty book; the encoding
// must therefore stay stable across versions.

var errBadPayload = errors.New("service: malformed command payload")

type placeCommand struct {
	ID    uint64
	Owner uint64
	Side  book.Side
	Type  book.OrderType
	Price int64
	Qty   int64
}

type cancelCommand struct {
	ID uint64
}

type modifyCommand struct {
	ID    uint64
	Side  book.Side
	Price int64
	Qty   int64
}

func encodePlace(c placeCommand) []byte {
	buf := make([]byte, 0, 32)
	buf = appendUint(buf, 1, c.ID)
	buf = appendUint(buf, 2, c.Owner)
	buf = appendUint(buf, 3, uint64(c.Side))
	buf = appendUint(buf, 4, uint64(c.Type))
	buf = appendSint(buf, 5, c.Price)
	buf = appendSint(buf, 6, c.Qty)
	return buf
}

func decodePlace(data []byte) (placeCommand, error) {
	var c placeCommand
	err := walkFields(data, func(num protowire.Number, v uint64) {
		switch num {
		case 1:
			c.ID = v
		case 2:
			c.Owner = v
		case 3:
			c.Side = book.Side(v)
		case 4:
			c.Type = book.OrderType(v)
		case 5:
			c.Price = protowire.DecodeZigZag(v)
		case 6:
			c.Qty = protowire.DecodeZigZag(v)
		}
	})
	return c, err
}

func encodeCancel(c cancelCommand) []byte {
	return appendUint(nil, 1, c.ID)
}

func decodeCancel(data []byte) (cancelCommand, error) {
	var c cancelCommand
	err := walkFields(data, func(num protowire.Number, v uint64) {
		if num == 1 {
			c.ID = v
		}
	})
	return c, err
}

func encodeModify(c modifyCommand) []byte {
	buf := make([]byte, 0, 24)
	buf = appendUint(buf, 1, c.ID)
	buf = appendUint(buf, 2, uint64(c.Side))
	buf = appendSint(buf, 3, c.Price)
	buf = appendSint(buf, 4, c.Qty)
	return buf
}

func decodeModify(data []byte) (modifyCommand, error) {
	var c modifyCommand
	err := walkFields(data, func(num protowire.Number, v uint64) {
		switch num {
		case 1:
			c.ID = v
		case 2:
			c.Side = book.Side(v)
		case 3:
			c.Price = protowire.DecodeZigZag(v)
		case 4:
			c.Qty = protowire.DecodeZigZag(v)
		}
	})
	return c, err
}

func appendUint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendSint(buf []byte, num protowire.Number, v int64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, protowire.EncodeZigZag(v))
}

// walkFields visits every varint field in a payload. All command fields are
// varints, which keeps the codec to one shape.
func walkFields(data []byte, fn func(protowire.Number, uint64)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errBadPayload
		}
		data = data[n:]

		if typ != protowire.VarintType {
			skip := protowire.ConsumeFieldValue(num, typ, data)
			if skip < 0 {
				return fmt.Errorf("%w: field %d", errBadPayload, num)
			}
			data = data[skip:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return fmt.Errorf("%w: field %d", errBadPayload, num)
		}
		fn(num, v)
		data = data[n:]
	}
	return nil
}
