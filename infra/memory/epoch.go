package memory

import "sync/atomic"

// GlobalEpoch monotonically increases on every reclamation pass.
var GlobalEpoch atomic.Uint64

const inactive = ^uint64(0)

// ReaderEpoch marks when a reader entered a read section. A reader that is
// not inside a section publishes the inactive sentinel.
type ReaderEpoch struct {
	epoch atomic.Uint64
}

func NewReaderEpoch() *ReaderEpoch {
	r := &ReaderEpoch{}
	r.epoch.Store(inactive)
	return r
}

func (r *ReaderEpoch) Enter() {
	r.epoch.Store(GlobalEpoch.Load())
}

func (r *ReaderEpoch) Exit() {
	r.epoch.Store(inactive)
}

func (r *ReaderEpoch) Value() uint64 {
	return r.epoch.Load()
}

// ReclaimablePool is the only requirement reclamation places on a pool.
type ReclaimablePool interface {
	PutAny(any)
}

// AdvanceEpochAndReclaim bumps the global epoch and returns retired objects
// to the pool while it is safe. The ring is FIFO: once one object is unsafe
// to reclaim, all newer ones are too, so the pass stops there.
func AdvanceEpochAndReclaim(ring *RetireRing, pool ReclaimablePool, readers ...*ReaderEpoch) {
	GlobalEpoch.Add(1)
	min := minReaderEpoch(readers...)

	for {
		obj := ring.Dequeue()
		if obj == nil {
			return
		}

		if min == inactive {
			pool.PutAny(obj)
			continue
		}

		_ = ring.Enqueue(obj)
		return
	}
}

func minReaderEpoch(rs ...*ReaderEpoch) uint64 {
	min := inactive
	for _, r := range rs {
		if r == nil {
			continue
		}
		v := r.Value()
		if v < min {
			min = v
		}
	}
	return min
}
