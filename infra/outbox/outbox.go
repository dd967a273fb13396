// Package outbox is the durable staging area between the matching engine and
// Kafka. Every trade is written here in the same critical section that
// produced it; the broadcaster drains it asynchronously, so publishing is
// at-least-once and survives restarts.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "NEW"
	}
}

// Record is one staged event. Seq is the engine sequence of the command that
// produced it plus a per-command offset, so keys sort in execution order.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

var ErrCorruptOutboxRecord = errors.New("outbox: corrupted record")

// value encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeValue(r *Record) []byte {
	buf := make([]byte, 13+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeValue(seq uint64, b []byte) (*Record, error) {
	if len(b) < 13 {
		return nil, ErrCorruptOutboxRecord
	}
	return &Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[13:]...),
	}, nil
}

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		// trades must survive a crash between match and publish
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stages a new event.
func (o *Outbox) Put(seq uint64, payload []byte) error {
	rec := &Record{Seq: seq, State: StateNew, Payload: payload}
	return o.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// MarkSent flips a record to SENT before the publish attempt, bumping the
// retry counter. Idempotent across broadcaster restarts.
func (o *Outbox) MarkSent(seq uint64) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = StateSent
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// MarkAcked records a confirmed publish.
func (o *Outbox) MarkAcked(seq uint64) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = StateAcked
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (*Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeValue(seq, val)
}

// ScanPending visits every record not yet ACKED, in key order. SENT records
// are included: a SENT without an ACK means the broadcaster died mid-publish
// and the event must go out again.
func (o *Outbox) ScanPending(fn func(*Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeValue(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// TruncateAckedUpTo garbage-collects ACKED records at or below seq. Called
// from the snapshot job once the snapshot covers them.
func (o *Outbox) TruncateAckedUpTo(seq uint64) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: append(keyFor(seq), '~'),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if len(iter.Value()) > 0 && State(iter.Value()[0]) == StateAcked {
			if err := o.db.Delete(append([]byte(nil), iter.Key()...), pebble.Sync); err != nil {
				return err
			}
		}
	}
	return iter.Error()
}

const keyPrefix = "trade/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	s := strings.TrimPrefix(string(b), keyPrefix)
	return strconv.ParseUint(s, 10, 64)
}
