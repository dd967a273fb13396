package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

type ReplayHandler func(*Record) error

// Replay streams every record in the log in segment order, enforcing
// strictly monotonic sequence ids, and returns the last sequence seen.
// A truncated trailing frame (torn write on crash) ends replay cleanly;
// a CRC mismatch does not.
func Replay(dir string, ser Serializer, fn ReplayHandler) (lastSeq uint64, err error) {
	if ser == nil {
		ser = ProtoSerializer{}
	}
	files, err := listSegments(dir)
	if err != nil {
		return 0, err
	}

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}

		for {
			rec, err := readFrame(f, ser)
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				if errors.Is(err, io.ErrUnexpectedEOF) {
					// torn tail write; everything before it is good
					break
				}
				_ = f.Close()
				return lastSeq, err
			}

			if rec.Seq <= lastSeq {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: non-monotonic seq %d after %d", rec.Seq, lastSeq)
			}
			lastSeq = rec.Seq

			if err := fn(rec); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}

	return lastSeq, nil
}

func readFrame(r io.Reader, ser Serializer) (*Record, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:4])
	sum := binary.LittleEndian.Uint32(header[4:8])

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	if !CRC32Valid(body, sum) {
		return nil, ErrCorruptRecord
	}
	return ser.Decode(body)
}

// maxSeqInSegment scans one segment for its highest sequence id. Used only
// for snapshot-based truncation.
func maxSeqInSegment(path string, ser Serializer) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		rec, err := readFrame(f, ser)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return max, nil
			}
			return max, err
		}
		if rec.Seq > max {
			max = rec.Seq
		}
	}
}
