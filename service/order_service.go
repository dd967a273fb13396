// Package service is the only write entry point into the engine. It owns the
// command order: sequence, WAL intent, deterministic book mutation, outbox
// staging, reclamation. Everything above it (HTTP, jobs) goes through here.
package service

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"kestrel/domain/book"
	"kestrel/infra/memory"
	"kestrel/infra/outbox"
	"kestrel/infra/sequence"
	"kestrel/infra/wal"
	"kestrel/metrics"
	"kestrel/snapshot"
)

type OrderService struct {
	mu sync.Mutex

	book   *book.Book
	pool   *memory.Pool[book.Order]
	ring   *memory.RetireRing
	reader *snapshot.Reader
	seqGen *sequence.Sequencer

	// wal and box may be nil (tests, replay); commands then skip durability.
	wal *wal.WAL
	box *outbox.Outbox

	log *zap.Logger
}

func NewOrderService(
	b *book.Book,
	pool *memory.Pool[book.Order],
	ring *memory.RetireRing,
	reader *snapshot.Reader,
	seqGen *sequence.Sequencer,
	w *wal.WAL,
	box *outbox.Outbox,
	log *zap.Logger,
) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		book:   b,
		pool:   pool,
		ring:   ring,
		reader: reader,
		seqGen: seqGen,
		wal:    w,
		box:    box,
		log:    log,
	}
}

type PlaceRequest struct {
	// ID may be zero; the engine then assigns the command sequence as id.
	ID    uint64
	Owner uint64
	Side  book.Side
	Type  book.OrderType
	Price int64
	Qty   int64
}

type PlaceResult struct {
	OrderID uint64
	Seq     uint64
	Status  book.Status
	Trades  []book.Trade
}

// PlaceOrder submits a new order: WAL intent first, then the deterministic
// book mutation, then outbox staging for every trade printed.
func (s *OrderService) PlaceOrder(req PlaceRequest) (PlaceResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Next()
	id := req.ID
	if id == 0 {
		id = seq
	}

	cmd := placeCommand{ID: id, Owner: req.Owner, Side: req.Side, Type: req.Type, Price: req.Price, Qty: req.Qty}
	if err := s.appendWAL(wal.RecordPlace, seq, encodePlace(cmd)); err != nil {
		return PlaceResult{}, err
	}

	o := s.pool.Get()
	*o = book.Order{
		ID:    id,
		Owner: req.Owner,
		Price: req.Price,
		Qty:   req.Qty,
		SeqID: seq,
		Side:  req.Side,
		Type:  req.Type,
	}

	trades, err := s.book.Insert(o)
	if err != nil {
		s.pool.Put(o)
		metrics.OrdersRejectedTotal.WithLabelValues(s.book.Instrument(), "invalid").Inc()
		return PlaceResult{}, err
	}

	s.stageTrades(seq, trades)
	s.afterCommand(o, trades)
	metrics.OrdersAcceptedTotal.WithLabelValues(s.book.Instrument(), req.Side.String(), req.Type.String()).Inc()
	metrics.CommandLatency.WithLabelValues(s.book.Instrument(), "place").Observe(time.Since(start).Seconds())

	s.log.Debug("order placed",
		zap.Uint64("id", id),
		zap.Uint64("seq", seq),
		zap.Stringer("side", req.Side),
		zap.Stringer("type", req.Type),
		zap.Int64("price", req.Price),
		zap.Int64("qty", req.Qty),
		zap.Int("trades", len(trades)),
	)

	return PlaceResult{OrderID: id, Seq: seq, Status: o.Status, Trades: trades}, nil
}

// CancelOrder removes the full remaining quantity of a resting order.
func (s *OrderService) CancelOrder(id uint64) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Next()
	if err := s.appendWAL(wal.RecordCancel, seq, encodeCancel(cancelCommand{ID: id})); err != nil {
		return err
	}

	if err := s.book.Cancel(id); err != nil {
		return err
	}

	s.afterCommand(nil, nil)
	metrics.CommandLatency.WithLabelValues(s.book.Instrument(), "cancel").Observe(time.Since(start).Seconds())
	s.log.Debug("order cancelled", zap.Uint64("id", id), zap.Uint64("seq", seq))
	return nil
}

// ModifyOrder amends a resting order. A price change re-enters the queue and
// may trade immediately; any trades are staged like a fresh order's.
func (s *OrderService) ModifyOrder(id uint64, side book.Side, qty, price int64) ([]book.Trade, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Next()
	cmd := modifyCommand{ID: id, Side: side, Price: price, Qty: qty}
	if err := s.appendWAL(wal.RecordModify, seq, encodeModify(cmd)); err != nil {
		return nil, err
	}

	trades, err := s.book.Modify(id, side, qty, price)
	if err != nil {
		return nil, err
	}

	s.stageTrades(seq, trades)
	s.afterCommand(nil, trades)
	metrics.CommandLatency.WithLabelValues(s.book.Instrument(), "modify").Observe(time.Since(start).Seconds())
	s.log.Debug("order modified",
		zap.Uint64("id", id),
		zap.Uint64("seq", seq),
		zap.Int64("price", price),
		zap.Int64("qty", qty),
		zap.Int("trades", len(trades)),
	)
	return trades, nil
}

// UncrossBook sweeps the resting book, pairing crossed levels until none
// remain. Used after out-of-band book edits (snapshot restore tooling,
// reference-price moves), not on the normal insert path.
func (s *OrderService) UncrossBook() []book.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Next()
	_ = s.appendWAL(wal.RecordUncross, seq, nil)

	trades := s.book.Uncross()
	s.stageTrades(seq, trades)
	s.afterCommand(nil, trades)
	s.log.Info("book uncrossed", zap.Uint64("seq", seq), zap.Int("trades", len(trades)))
	return trades
}

// ---- queries ----

func (s *OrderService) BestBid() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestBid()
}

func (s *OrderService) BestAsk() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestAsk()
}

func (s *OrderService) Depth() (bids, asks []book.LevelDepth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Depth()
}

func (s *OrderService) Instrument() string {
	return s.book.Instrument()
}

func (s *OrderService) LastSeq() uint64 {
	return s.seqGen.Current()
}

// VisitActive walks all resting orders best-first under the reader epoch.
// Orders passed to visit are read-only.
func (s *OrderService) VisitActive(visit func(*book.Order)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reader.Begin()
	defer s.reader.End()

	walkLevel := func(lvl *book.PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			if o.Status == book.Active {
				visit(o)
			}
		}
		return true
	}
	s.book.BidsWalk(walkLevel)
	s.book.AsksWalk(walkLevel)
}

// WriteSnapshot persists the current book and prunes WAL and outbox up to
// the snapshot's sequence.
func (s *OrderService) WriteSnapshot(w *snapshot.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Current()
	if err := w.Write(seq, s.book); err != nil {
		return err
	}
	if s.wal != nil {
		_ = s.wal.TruncateBefore(seq)
	}
	if s.box != nil {
		_ = s.box.TruncateAckedUpTo(eventSeq(seq, maxEventsPerCommand-1))
	}
	return nil
}

// AdvanceEpoch runs one reclamation pass. Called periodically by a
// background job.
func (s *OrderService) AdvanceEpoch() {
	memory.AdvanceEpochAndReclaim(s.ring, s.pool, s.reader.Epoch())
}

// ---- internals ----

func (s *OrderService) appendWAL(t wal.RecordType, seq uint64, payload []byte) error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Append(wal.NewRecord(t, seq, payload))
}

const maxEventsPerCommand = 1 << 16

// eventSeq derives a unique, ordered outbox key from the command sequence
// and the trade's position inside it. Command sequences are never reused
// across restarts, so keys cannot collide.
func eventSeq(cmdSeq uint64, i int) uint64 {
	return cmdSeq*maxEventsPerCommand + uint64(i)
}

func (s *OrderService) stageTrades(seq uint64, trades []book.Trade) {
	if s.box == nil || len(trades) == 0 {
		return
	}
	inst := s.book.Instrument()
	for i, t := range trades {
		payload, err := json.Marshal(newTradeEvent(inst, seq, t))
		if err != nil {
			s.log.Error("trade event marshal failed", zap.Error(err))
			continue
		}
		if err := s.box.Put(eventSeq(seq, i), payload); err != nil {
			// the trade already happened; losing its event is a
			// publishing gap, not an engine inconsistency
			s.log.Error("outbox put failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}
}

// afterCommand retires unlinked orders and refreshes book gauges. incoming
// is the order that drove the command when it never rested, nil otherwise.
func (s *OrderService) afterCommand(incoming *book.Order, trades []book.Trade) {
	inst := s.book.Instrument()

	for _, o := range s.book.TakeRemoved() {
		if !s.ring.Enqueue(o) {
			// ring full: let GC take it rather than block the engine
			break
		}
	}
	if incoming != nil && incoming.Status != book.Active {
		_ = s.ring.Enqueue(incoming)
	}

	if n := len(trades); n > 0 {
		metrics.TradesTotal.WithLabelValues(inst).Add(float64(n))
		var qty int64
		for _, t := range trades {
			qty += t.Qty
		}
		metrics.TradedQty.WithLabelValues(inst).Add(float64(qty))
	}

	metrics.RestingOrders.WithLabelValues(inst).Set(float64(s.book.Len()))
	if bid, ok := s.book.BestBid(); ok {
		metrics.BestBid.WithLabelValues(inst).Set(float64(bid))
	} else {
		metrics.BestBid.DeleteLabelValues(inst)
	}
	if ask, ok := s.book.BestAsk(); ok {
		metrics.BestAsk.WithLabelValues(inst).Set(float64(ask))
	} else {
		metrics.BestAsk.DeleteLabelValues(inst)
	}
}
