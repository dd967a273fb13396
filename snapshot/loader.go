package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"kestrel/domain/book"
	"kestrel/infra/memory"
)

// Load restores a snapshot into an empty book and returns its sequence.
// A missing snapshot is a fresh boot, not an error.
func Load(dir string, b *book.Book, pool *memory.Pool[book.Order]) (uint64, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, fmt.Errorf("snapshot: decode: %w", err)
	}

	for _, e := range s.Orders {
		o := pool.Get()
		*o = book.Order{
			ID:    e.ID,
			Owner: e.Owner,
			Side:  book.Side(e.Side),
			Type:  book.OrderType(e.Type),
			Price: e.Price,
			Qty:   e.Qty,
			SeqID: e.Seq,
		}
		// snapshotted state never crosses, so inserts only rest
		trades, err := b.Insert(o)
		if err != nil {
			return 0, fmt.Errorf("snapshot: restore order %d: %w", e.ID, err)
		}
		if len(trades) != 0 {
			return 0, fmt.Errorf("snapshot: order %d traded during restore", e.ID)
		}
	}
	return s.Seq, nil
}
