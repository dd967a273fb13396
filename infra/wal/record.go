// Package wal is the entry write-ahead log: every accepted command is framed,
// checksummed and appended to a segmented log before it touches the book.
// Replaying the log in sequence order rebuilds the book deterministically.
package wal

import "time"

type RecordType uint8

const (
	RecordPlace RecordType = iota
	RecordCancel
	RecordModify
	RecordUncross
)

func (t RecordType) String() string {
	switch t {
	case RecordCancel:
		return "cancel"
	case RecordModify:
		return "modify"
	case RecordUncross:
		return "uncross"
	default:
		return "place"
	}
}

type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
