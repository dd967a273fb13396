// Package snapshot persists a point-in-time view of the resting book so the
// entry WAL can be truncated. Boot order is snapshot first, then WAL replay
// from the snapshot's sequence.
package snapshot

import "time"

type Snapshot struct {
	Seq     uint64
	Created time.Time
	Orders  []OrderEntry
}

// OrderEntry is one resting order. Qty is the remaining quantity: a restored
// book does not care how much of the original size already traded.
type OrderEntry struct {
	ID    uint64
	Owner uint64
	Side  int
	Type  int
	Price int64
	Qty   int64
	Seq   uint64
}
