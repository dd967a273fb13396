package book

// SelfTradePolicy decides what happens when an incoming order would trade
// against a resting order with the same owner.
type SelfTradePolicy int

const (
	// SelfTradeAllow lets the orders trade. Owner identity is ignored.
	SelfTradeAllow SelfTradePolicy = iota
	// SelfTradeCancelIncoming stops matching at the first same-owner
	// counterparty and drops the incoming remainder instead of resting it.
	SelfTradeCancelIncoming
)

type Config struct {
	Instrument string

	// AllowNonPositivePrice admits zero and negative limit prices
	// (some instruments legitimately trade through zero).
	AllowNonPositivePrice bool

	SelfTrade SelfTradePolicy
}

// Trade records one match. MakerID is the resting order, TakerID the incoming
// or triggering order; Price is always the resting order's price.
type Trade struct {
	MakerID uint64 `json:"maker_id"`
	TakerID uint64 `json:"taker_id"`
	Price   int64  `json:"price"`
	Qty     int64  `json:"qty"`
}

// Book is the single-instrument matching engine. It is single-writer and
// deterministic: callers serialize all operations. Every operation either
// fully succeeds or leaves the book untouched.
type Book struct {
	cfg Config

	bids *RBTree
	asks *RBTree

	// orders indexes every resting order by id. An order is in the index
	// exactly while it is linked into a price level.
	orders map[uint64]*Order

	arrivals uint64
	removed  []*Order
}

func New(cfg Config) *Book {
	return &Book{
		cfg:    cfg,
		bids:   NewRBTree(),
		asks:   NewRBTree(),
		orders: make(map[uint64]*Order),
	}
}

func (b *Book) Instrument() string { return b.cfg.Instrument }

// Len reports the number of resting orders.
func (b *Book) Len() int { return len(b.orders) }

// Insert validates o, matches it against the opposite side while prices
// cross, and rests any limit-order remainder. Trades are reported in
// execution order. On error the book is unchanged and o has not been touched.
func (b *Book) Insert(o *Order) ([]Trade, error) {
	if err := b.validate(o); err != nil {
		return nil, err
	}
	if _, dup := b.orders[o.ID]; dup {
		return nil, ErrDuplicateOrder
	}

	b.arrivals++
	o.arrival = b.arrivals

	// FOK dry-run: no partial executions if the full size is not there.
	if o.Type == FOK && b.availableQty(o) < o.Remaining() {
		o.Status = Cancelled
		return nil, nil
	}
	if o.Type == PostOnly && b.wouldCross(o) {
		o.Status = Cancelled
		return nil, nil
	}

	trades := b.match(o)

	switch {
	case o.Remaining() == 0:
		o.Status = Filled
	case o.Status == Cancelled:
		// self-trade prevention tripped mid-match; remainder is dropped
	case o.Type == Limit || o.Type == PostOnly:
		b.rest(o)
	default:
		// Market/IOC/FOK remainders never rest
		o.Status = Cancelled
	}
	return trades, nil
}

// Cancel removes the full remaining quantity of a resting order.
func (b *Book) Cancel(id uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = Cancelled
	b.removeResting(o)
	return nil
}

// Modify amends a resting order. A same-price modify updates the remaining
// quantity in place and keeps time priority. A price change is a cancel plus
// a fresh insert: the order re-enters the FIFO at the tail and may trade
// immediately, exactly as a new order would.
func (b *Book) Modify(id uint64, side Side, qty, price int64) ([]Trade, error) {
	o, ok := b.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Side != side {
		return nil, ErrInvalidModify
	}
	if qty <= 0 {
		return nil, ErrInvalidOrder
	}
	if price <= 0 && !b.cfg.AllowNonPositivePrice {
		return nil, ErrInvalidOrder
	}

	if price == o.Price {
		o.level.TotalQty += qty - o.Remaining()
		o.Qty = o.Filled + qty
		return nil, nil
	}

	b.removeResting(o)
	o.Status = Replaced

	repl := &Order{
		ID:    o.ID,
		Owner: o.Owner,
		Price: price,
		Qty:   qty,
		SeqID: o.SeqID,
		Side:  o.Side,
		Type:  o.Type,
	}
	return b.Insert(repl)
}

// Uncross sweeps the resting book after an external state change: while the
// best bid and best ask cross, the two queue heads trade at the
// earlier-arrived order's price.
func (b *Book) Uncross() []Trade {
	var trades []Trade
	for {
		bestBid := b.bids.MaxLevel()
		bestAsk := b.asks.MinLevel()
		if bestBid == nil || bestAsk == nil || bestBid.Price < bestAsk.Price {
			return trades
		}

		bid, ask := bestBid.Head(), bestAsk.Head()
		maker, taker := bid, ask
		price := bestBid.Price
		if ask.arrival < bid.arrival {
			maker, taker = ask, bid
			price = bestAsk.Price
		}

		qty := bid.Remaining()
		if ask.Remaining() < qty {
			qty = ask.Remaining()
		}

		bid.Filled += qty
		ask.Filled += qty
		bestBid.TotalQty -= qty
		bestAsk.TotalQty -= qty
		trades = append(trades, Trade{MakerID: maker.ID, TakerID: taker.ID, Price: price, Qty: qty})

		if bid.Remaining() == 0 {
			bid.Status = Filled
			b.removeResting(bid)
		}
		if ask.Remaining() == 0 {
			ask.Status = Filled
			b.removeResting(ask)
		}
	}
}

func (b *Book) BestBid() (int64, bool) {
	if lvl := b.bids.MaxLevel(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

func (b *Book) BestAsk() (int64, bool) {
	if lvl := b.asks.MinLevel(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

// LevelDepth is one aggregated price level in a depth view.
type LevelDepth struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

// Depth returns both sides best-first as plain copies. No internal
// references escape.
func (b *Book) Depth() (bids, asks []LevelDepth) {
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		bids = append(bids, LevelDepth{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount})
		return true
	})
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		asks = append(asks, LevelDepth{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount})
		return true
	})
	return bids, asks
}

// BidsWalk visits bid levels best-first. Callers must treat orders as
// read-only.
func (b *Book) BidsWalk(fn func(*PriceLevel) bool) {
	b.bids.ForEachDescending(fn)
}

// AsksWalk visits ask levels best-first.
func (b *Book) AsksWalk(fn func(*PriceLevel) bool) {
	b.asks.ForEachAscending(fn)
}

// TakeRemoved drains the orders the book unlinked since the last call
// (fills, cancels, replaced originals). The caller owns reclamation.
func (b *Book) TakeRemoved() []*Order {
	r := b.removed
	b.removed = nil
	return r
}

// ---- internals ----

func (b *Book) validate(o *Order) error {
	if o == nil || o.ID == 0 || o.Qty <= 0 || o.Filled != 0 || o.Status != Active {
		return ErrInvalidOrder
	}
	if o.Type != Market && o.Price <= 0 && !b.cfg.AllowNonPositivePrice {
		return ErrInvalidOrder
	}
	return nil
}

func (b *Book) sideTree(s Side) *RBTree {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// bestOpposite returns the level an incoming order matches next, or nil when
// nothing crosses.
func (b *Book) bestOpposite(o *Order) *PriceLevel {
	if o.Side == Bid {
		lvl := b.asks.MinLevel()
		if lvl == nil || (o.Type != Market && lvl.Price > o.Price) {
			return nil
		}
		return lvl
	}
	lvl := b.bids.MaxLevel()
	if lvl == nil || (o.Type != Market && lvl.Price < o.Price) {
		return nil
	}
	return lvl
}

func (b *Book) match(o *Order) []Trade {
	var trades []Trade
	for o.Remaining() > 0 {
		best := b.bestOpposite(o)
		if best == nil {
			return trades
		}

		head := best.Head()
		if b.cfg.SelfTrade == SelfTradeCancelIncoming && o.Owner != 0 && head.Owner == o.Owner {
			o.Status = Cancelled
			return trades
		}

		qty := o.Remaining()
		if head.Remaining() < qty {
			qty = head.Remaining()
		}

		o.Filled += qty
		head.Filled += qty
		best.TotalQty -= qty
		trades = append(trades, Trade{MakerID: head.ID, TakerID: o.ID, Price: best.Price, Qty: qty})

		if head.Remaining() == 0 {
			head.Status = Filled
			b.removeResting(head)
		}
	}
	return trades
}

func (b *Book) rest(o *Order) {
	b.sideTree(o.Side).UpsertLevel(o.Price).Enqueue(o)
	b.orders[o.ID] = o
}

// removeResting unlinks a resting order from its level, drops the empty
// level, and erases the index entry. Index and sides move together: this is
// the only place both are mutated.
func (b *Book) removeResting(o *Order) {
	lvl := o.level
	if lvl != nil {
		lvl.unlink(o)
		if lvl.Empty() {
			b.sideTree(o.Side).DeleteLevel(lvl.Price)
		}
	}
	delete(b.orders, o.ID)
	b.removed = append(b.removed, o)
}

// availableQty sums opposite-side liquidity at prices the order could hit.
func (b *Book) availableQty(o *Order) int64 {
	var avail int64
	if o.Side == Bid {
		b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
			if o.Type != Market && lvl.Price > o.Price {
				return false
			}
			avail += lvl.TotalQty
			return avail < o.Remaining()
		})
	} else {
		b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
			if o.Type != Market && lvl.Price < o.Price {
				return false
			}
			avail += lvl.TotalQty
			return avail < o.Remaining()
		})
	}
	return avail
}

func (b *Book) wouldCross(o *Order) bool {
	return b.bestOpposite(o) != nil
}
