package wal

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	Serializer      Serializer
}

const (
	defaultSegmentSize     = 2 << 20
	defaultSegmentDuration = time.Minute
)

type WAL struct {
	dir        string
	segSize    int64
	segDur     time.Duration
	ser        Serializer
	current    *segment
	segIndex   int
	lastRotate time.Time
}

func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = defaultSegmentDuration
	}
	if cfg.Serializer == nil {
		cfg.Serializer = ProtoSerializer{}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	// continue appending to the newest existing segment
	index := 0
	if files, err := listSegments(cfg.Dir); err == nil && len(files) > 0 {
		index = segmentIndex(files[len(files)-1])
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}

	return &WAL{
		dir:        cfg.Dir,
		segSize:    cfg.SegmentSize,
		segDur:     cfg.SegmentDuration,
		ser:        cfg.Serializer,
		current:    seg,
		segIndex:   index,
		lastRotate: time.Now(),
	}, nil
}

// Append frames and writes one record:
// [len:4][crc:4][body], little-endian, crc over the body.
func (w *WAL) Append(rec *Record) error {
	body, err := w.ser.Encode(rec)
	if err != nil {
		return err
	}

	frame := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], CRC32(body))
	copy(frame[8:], body)

	if err := w.current.append(frame); err != nil {
		return err
	}

	if w.current.offset >= w.segSize || time.Since(w.lastRotate) >= w.segDur {
		return w.rotate()
	}
	return nil
}

func (w *WAL) Sync() error {
	return w.current.sync()
}

func (w *WAL) Close() error {
	return w.current.close()
}

func (w *WAL) rotate() error {
	_ = w.current.sync()
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}

	w.current = seg
	w.lastRotate = time.Now()
	return nil
}

// TruncateBefore removes whole segments whose records are all covered by a
// snapshot at seq. The open segment is never removed.
func (w *WAL) TruncateBefore(seq uint64) error {
	files, err := listSegments(w.dir)
	if err != nil {
		return err
	}

	for _, path := range files {
		if path == segmentPath(w.dir, w.segIndex) {
			continue
		}
		maxSeq, err := maxSeqInSegment(path, w.ser)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}

func listSegments(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
