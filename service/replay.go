package service

import (
	"fmt"

	"go.uber.org/zap"

	"kestrel/domain/book"
	"kestrel/infra/memory"
	"kestrel/infra/wal"
	"kestrel/snapshot"
)

// Restore rebuilds book state on boot: snapshot first, then every WAL record
// newer than the snapshot, re-applied in sequence order. Returns the highest
// sequence recovered, which seeds the sequencer.
//
// Commands that failed when first executed fail identically here; their
// errors were the caller's problem then and are only logged now.
func Restore(b *book.Book, pool *memory.Pool[book.Order], snapDir, walDir string, ser wal.Serializer, log *zap.Logger) (uint64, error) {
	if log == nil {
		log = zap.NewNop()
	}

	snapSeq, err := snapshot.Load(snapDir, b, pool)
	if err != nil {
		return 0, fmt.Errorf("restore: load snapshot: %w", err)
	}
	if snapSeq > 0 {
		log.Info("snapshot restored", zap.Uint64("seq", snapSeq), zap.Int("orders", b.Len()))
	}

	replayed := 0
	lastSeq, err := wal.Replay(walDir, ser, func(rec *wal.Record) error {
		if rec.Seq <= snapSeq {
			return nil
		}
		applyRecord(b, pool, rec, log)
		replayed++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore: replay wal: %w", err)
	}
	if replayed > 0 {
		log.Info("wal replayed", zap.Int("records", replayed), zap.Uint64("last_seq", lastSeq))
	}

	if lastSeq < snapSeq {
		lastSeq = snapSeq
	}
	return lastSeq, nil
}

func applyRecord(b *book.Book, pool *memory.Pool[book.Order], rec *wal.Record, log *zap.Logger) {
	switch rec.Type {
	case wal.RecordPlace:
		cmd, err := decodePlace(rec.Data)
		if err != nil {
			log.Warn("skipping undecodable place record", zap.Uint64("seq", rec.Seq), zap.Error(err))
			return
		}
		o := pool.Get()
		*o = book.Order{
			ID:    cmd.ID,
			Owner: cmd.Owner,
			Price: cmd.Price,
			Qty:   cmd.Qty,
			SeqID: rec.Seq,
			Side:  cmd.Side,
			Type:  cmd.Type,
		}
		if _, err := b.Insert(o); err != nil {
			pool.Put(o)
			log.Debug("place rejected on replay", zap.Uint64("seq", rec.Seq), zap.Error(err))
		}

	case wal.RecordCancel:
		cmd, err := decodeCancel(rec.Data)
		if err != nil {
			log.Warn("skipping undecodable cancel record", zap.Uint64("seq", rec.Seq), zap.Error(err))
			return
		}
		if err := b.Cancel(cmd.ID); err != nil {
			log.Debug("cancel rejected on replay", zap.Uint64("seq", rec.Seq), zap.Error(err))
		}

	case wal.RecordModify:
		cmd, err := decodeModify(rec.Data)
		if err != nil {
			log.Warn("skipping undecodable modify record", zap.Uint64("seq", rec.Seq), zap.Error(err))
			return
		}
		if _, err := b.Modify(cmd.ID, cmd.Side, cmd.Qty, cmd.Price); err != nil {
			log.Debug("modify rejected on replay", zap.Uint64("seq", rec.Seq), zap.Error(err))
		}

	case wal.RecordUncross:
		b.Uncross()

	default:
		log.Warn("unknown wal record type", zap.Uint64("seq", rec.Seq), zap.Int("type", int(rec.Type)))
	}

	// no readers exist during replay, matched-out orders go straight back
	for _, o := range b.TakeRemoved() {
		pool.Put(o)
	}
}
