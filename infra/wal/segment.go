package wal

import (
	"fmt"
	"os"
	"path/filepath"
)

type segment struct {
	file   *os.File
	offset int64
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%06d.wal", index))
}

// segmentIndex recovers the index embedded in a segment filename. Needed on
// reopen because truncation leaves gaps in the numbering.
func segmentIndex(path string) int {
	var index int
	_, _ = fmt.Sscanf(filepath.Base(path), "segment-%d.wal", &index)
	return index
}

func openSegment(dir string, index int) (*segment, error) {
	f, err := os.OpenFile(segmentPath(dir, index), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{file: f, offset: st.Size()}, nil
}

func (s *segment) append(b []byte) error {
	n, err := s.file.Write(b)
	if err != nil {
		return err
	}
	s.offset += int64(n)
	return nil
}

func (s *segment) sync() error {
	return s.file.Sync()
}

func (s *segment) close() error {
	return s.file.Close()
}
