// Package sequence issues the strictly monotonic ids that order every
// accepted command. Sequence order is arrival order: replaying the WAL in
// sequence order reproduces the book exactly.
package sequence

import "sync/atomic"

type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. start is 0 on a fresh boot and the last replayed
// sequence after recovery.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset is only valid after WAL replay, before traffic is accepted.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
