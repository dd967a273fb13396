package snapshot

import "kestrel/infra/memory"

// Reader brackets a consistent read of the book for snapshotting. It is a
// thin adapter over memory.ReaderEpoch: Begin/End mark the read section,
// reclamation holds back any order retired inside it.
type Reader struct {
	epoch *memory.ReaderEpoch
}

func NewReader() *Reader {
	return &Reader{epoch: memory.NewReaderEpoch()}
}

func (r *Reader) Begin() {
	r.epoch.Enter()
}

func (r *Reader) End() {
	r.epoch.Exit()
}

func (r *Reader) Epoch() *memory.ReaderEpoch {
	return r.epoch
}
