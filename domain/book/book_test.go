package book

import (
	"errors"
	"testing"
)

func newTestBook() *Book {
	return New(Config{Instrument: "KES-USD"})
}

func limit(id uint64, side Side, price, qty int64) *Order {
	return &Order{ID: id, Side: side, Type: Limit, Price: price, Qty: qty}
}

func TestFullFillEmptiesBothSides(t *testing.T) {
	b := newTestBook()

	trades, err := b.Insert(limit(1, Bid, 100, 10))
	if err != nil || len(trades) != 0 {
		t.Fatalf("resting insert: trades=%v err=%v", trades, err)
	}
	trades, err = b.Insert(limit(2, Ask, 100, 10))
	if err != nil {
		t.Fatalf("crossing insert: %v", err)
	}
	if len(trades) != 1 || trades[0].Price != 100 || trades[0].Qty != 10 {
		t.Fatalf("expected one 10@100 trade, got %v", trades)
	}
	if trades[0].MakerID != 1 || trades[0].TakerID != 2 {
		t.Errorf("maker/taker wrong: %v", trades[0])
	}
	if b.Len() != 0 {
		t.Errorf("book should be empty, %d orders resting", b.Len())
	}
	if _, ok := b.BestBid(); ok {
		t.Error("best bid should be gone")
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("best ask should be gone")
	}
}

func TestTimePriorityWithinLevel(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	b.Insert(limit(2, Bid, 100, 3))

	trades, err := b.Insert(limit(3, Ask, 100, 6))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %v", trades)
	}
	if trades[0].MakerID != 1 || trades[0].Qty != 5 {
		t.Errorf("first trade should fully consume order 1: %v", trades[0])
	}
	if trades[1].MakerID != 2 || trades[1].Qty != 1 {
		t.Errorf("second trade should take 1 from order 2: %v", trades[1])
	}

	// order 2 rests with 2 remaining
	lvl := b.bids.FindLevel(100)
	if lvl == nil || lvl.Head() == nil || lvl.Head().ID != 2 {
		t.Fatal("order 2 should still head the 100 level")
	}
	if got := lvl.Head().Remaining(); got != 2 {
		t.Errorf("remaining = %d, want 2", got)
	}
}

func TestBestPriceBeatsArrivalOrder(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 10))
	b.Insert(limit(2, Bid, 101, 10))

	trades, err := b.Insert(limit(3, Ask, 100, 15))
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %v", trades)
	}
	if trades[0].MakerID != 2 || trades[0].Price != 101 || trades[0].Qty != 10 {
		t.Errorf("sell should hit the 101 bid first: %v", trades[0])
	}
	if trades[1].MakerID != 1 || trades[1].Price != 100 || trades[1].Qty != 5 {
		t.Errorf("remainder should hit the 100 bid: %v", trades[1])
	}
}

func TestCancelRemovesLevel(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(7, Bid, 99, 10))
	if err := b.Cancel(7); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := b.BestBid(); ok {
		t.Error("best bid should be empty after cancel")
	}
	if err := b.Cancel(7); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("second cancel should report not found, got %v", err)
	}
}

func TestCancelUnknownLeavesBookUntouched(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 4))
	b.Insert(limit(2, Ask, 105, 4))

	beforeBids, beforeAsks := b.Depth()
	if err := b.Cancel(42); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	afterBids, afterAsks := b.Depth()
	if len(afterBids) != len(beforeBids) || len(afterAsks) != len(beforeAsks) ||
		afterBids[0] != beforeBids[0] || afterAsks[0] != beforeAsks[0] {
		t.Error("failed cancel mutated the book")
	}
}

func TestModifySamePriceKeepsPriority(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	b.Insert(limit(2, Bid, 100, 5))

	trades, err := b.Modify(1, Bid, 3, 100)
	if err != nil || len(trades) != 0 {
		t.Fatalf("in-place amend: trades=%v err=%v", trades, err)
	}
	lvl := b.bids.FindLevel(100)
	if lvl.Head().ID != 1 {
		t.Error("order 1 should keep the head slot after a quantity-only amend")
	}
	if lvl.TotalQty != 8 {
		t.Errorf("level qty = %d, want 8", lvl.TotalQty)
	}
}

func TestNoOpModifyChangesNothing(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	b.Insert(limit(2, Bid, 100, 5))

	trades, err := b.Modify(2, Bid, 5, 100)
	if err != nil || len(trades) != 0 {
		t.Fatalf("no-op modify: trades=%v err=%v", trades, err)
	}
	lvl := b.bids.FindLevel(100)
	if lvl.Head().ID != 1 || lvl.Head().Next().ID != 2 {
		t.Error("queue order disturbed by no-op modify")
	}
	if lvl.TotalQty != 10 {
		t.Errorf("level qty = %d, want 10", lvl.TotalQty)
	}
}

func TestModifyPriceLosesPriorityAndMayMatch(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 10)) // resting buy
	b.Insert(limit(2, Ask, 101, 10)) // sell above, no cross

	// reprice the sell down through the bid: cancel+reinsert, matches at 100
	trades, err := b.Modify(2, Ask, 10, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].Price != 100 || trades[0].Qty != 10 {
		t.Fatalf("reprice should trade 10@100, got %v", trades)
	}
	if b.Len() != 0 {
		t.Errorf("book should be empty, %d resting", b.Len())
	}
}

func TestModifyPriceJoinsTail(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 105, 5))
	b.Insert(limit(2, Ask, 106, 5))

	// moving order 2 to 105 puts it behind order 1
	if _, err := b.Modify(2, Ask, 5, 105); err != nil {
		t.Fatal(err)
	}
	lvl := b.asks.FindLevel(105)
	if lvl.Head().ID != 1 || lvl.Head().Next() == nil || lvl.Head().Next().ID != 2 {
		t.Error("repriced order should queue behind the incumbent")
	}
	if b.asks.FindLevel(106) != nil {
		t.Error("vacated level should be gone")
	}
}

func TestModifySideMismatch(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	if _, err := b.Modify(1, Ask, 5, 100); !errors.Is(err, ErrInvalidModify) {
		t.Errorf("expected ErrInvalidModify, got %v", err)
	}
	if b.Len() != 1 {
		t.Error("failed modify must leave the order resting")
	}
}

func TestInsertRejectsInvalidOrders(t *testing.T) {
	b := newTestBook()
	cases := []*Order{
		{ID: 0, Side: Bid, Type: Limit, Price: 100, Qty: 5},
		{ID: 1, Side: Bid, Type: Limit, Price: 100, Qty: 0},
		{ID: 2, Side: Bid, Type: Limit, Price: 100, Qty: -3},
		{ID: 3, Side: Bid, Type: Limit, Price: 0, Qty: 5},
		{ID: 4, Side: Ask, Type: Limit, Price: -10, Qty: 5},
	}
	for _, o := range cases {
		if _, err := b.Insert(o); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("order %+v: expected ErrInvalidOrder, got %v", o, err)
		}
	}
	if b.Len() != 0 {
		t.Error("rejected orders must not enter the book")
	}
}

func TestNegativePriceAllowedWhenConfigured(t *testing.T) {
	b := New(Config{Instrument: "SPREAD", AllowNonPositivePrice: true})
	if _, err := b.Insert(limit(1, Bid, -5, 10)); err != nil {
		t.Fatalf("negative price should be accepted: %v", err)
	}
	trades, err := b.Insert(limit(2, Ask, -5, 10))
	if err != nil || len(trades) != 1 || trades[0].Price != -5 {
		t.Fatalf("negative-price cross failed: trades=%v err=%v", trades, err)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	if _, err := b.Insert(limit(1, Bid, 101, 5)); !errors.Is(err, ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestNoRestingCrossAfterAnyInsert(t *testing.T) {
	b := newTestBook()
	seq := []struct {
		id    uint64
		side  Side
		price int64
		qty   int64
	}{
		{1, Bid, 100, 10}, {2, Ask, 102, 5}, {3, Bid, 101, 7},
		{4, Ask, 101, 3}, {5, Ask, 99, 20}, {6, Bid, 103, 8},
	}
	for _, s := range seq {
		if _, err := b.Insert(limit(s.id, s.side, s.price, s.qty)); err != nil {
			t.Fatal(err)
		}
		bid, hasBid := b.BestBid()
		ask, hasAsk := b.BestAsk()
		if hasBid && hasAsk && bid >= ask {
			t.Fatalf("book left crossed after insert %d: bid=%d ask=%d", s.id, bid, ask)
		}
	}
}

func TestQuantityConservation(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 4))
	b.Insert(limit(2, Bid, 100, 6))
	trades, _ := b.Insert(limit(3, Ask, 100, 7))

	var traded int64
	for _, tr := range trades {
		traded += tr.Qty
	}
	if traded != 7 {
		t.Errorf("traded %d, want 7", traded)
	}
	lvl := b.bids.FindLevel(100)
	if lvl == nil || lvl.TotalQty != 3 {
		t.Errorf("3 should remain resting, level=%v", lvl)
	}
}

func TestUncrossTradesAtRestingPrice(t *testing.T) {
	b := New(Config{Instrument: "KES-USD", AllowNonPositivePrice: true})

	// build a crossed book directly, as replay after an external price update would
	buy := limit(1, Bid, 102, 10)
	sell := limit(2, Ask, 100, 6)
	b.arrivals++
	buy.arrival = b.arrivals
	b.rest(buy)
	b.arrivals++
	sell.arrival = b.arrivals
	b.rest(sell)

	trades := b.Uncross()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %v", trades)
	}
	// the bid arrived first, so its price governs
	if trades[0].Price != 102 || trades[0].Qty != 6 {
		t.Errorf("want 6@102, got %v", trades[0])
	}
	if trades[0].MakerID != 1 || trades[0].TakerID != 2 {
		t.Errorf("maker should be the earlier bid: %v", trades[0])
	}
	bid, _ := b.BestBid()
	if bid != 102 {
		t.Errorf("best bid = %d, want 102 with 4 left", bid)
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("ask side should be empty after uncross")
	}
}

func TestUncrossNoOpOnNormalBook(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	b.Insert(limit(2, Ask, 101, 5))
	if trades := b.Uncross(); len(trades) != 0 {
		t.Errorf("uncrossed book must not trade, got %v", trades)
	}
}

func TestIOCRemainderNeverRests(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 100, 5))

	ioc := &Order{ID: 2, Side: Bid, Type: IOC, Price: 100, Qty: 8}
	trades, err := b.Insert(ioc)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].Qty != 5 {
		t.Fatalf("ioc should take the 5 available, got %v", trades)
	}
	if ioc.Status != Cancelled {
		t.Errorf("ioc remainder should be cancelled, status=%v", ioc.Status)
	}
	if b.Len() != 0 {
		t.Error("ioc must not rest")
	}
}

func TestFOKAllOrNothing(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 100, 5))

	fok := &Order{ID: 2, Side: Bid, Type: FOK, Price: 100, Qty: 8}
	trades, err := b.Insert(fok)
	if err != nil || len(trades) != 0 {
		t.Fatalf("fok without liquidity should not trade: trades=%v err=%v", trades, err)
	}
	if fok.Status != Cancelled {
		t.Error("unfillable fok should be cancelled")
	}
	lvl := b.asks.FindLevel(100)
	if lvl == nil || lvl.TotalQty != 5 {
		t.Error("resting ask must be untouched by a rejected fok")
	}

	full := &Order{ID: 3, Side: Bid, Type: FOK, Price: 100, Qty: 5}
	trades, err = b.Insert(full)
	if err != nil || len(trades) != 1 || trades[0].Qty != 5 {
		t.Fatalf("fillable fok should trade in full: trades=%v err=%v", trades, err)
	}
}

func TestPostOnlyRejectedWhenCrossing(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 100, 5))

	po := &Order{ID: 2, Side: Bid, Type: PostOnly, Price: 100, Qty: 5}
	trades, err := b.Insert(po)
	if err != nil || len(trades) != 0 {
		t.Fatalf("crossing post-only must not trade: trades=%v err=%v", trades, err)
	}
	if po.Status != Cancelled {
		t.Error("crossing post-only should be cancelled")
	}

	po2 := &Order{ID: 3, Side: Bid, Type: PostOnly, Price: 99, Qty: 5}
	if _, err := b.Insert(po2); err != nil {
		t.Fatal(err)
	}
	if bid, _ := b.BestBid(); bid != 99 {
		t.Error("non-crossing post-only should rest")
	}
}

func TestMarketOrderSweepsBook(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 100, 3))
	b.Insert(limit(2, Ask, 101, 3))

	mkt := &Order{ID: 3, Side: Bid, Type: Market, Qty: 10}
	trades, err := b.Insert(mkt)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 || trades[0].Price != 100 || trades[1].Price != 101 {
		t.Fatalf("market buy should sweep asks in price order, got %v", trades)
	}
	if mkt.Status != Cancelled {
		t.Error("market remainder must not rest")
	}
}

func TestSelfTradePreventionCancelsIncoming(t *testing.T) {
	b := New(Config{Instrument: "KES-USD", SelfTrade: SelfTradeCancelIncoming})
	b.Insert(&Order{ID: 1, Owner: 9, Side: Ask, Type: Limit, Price: 100, Qty: 5})
	b.Insert(&Order{ID: 2, Owner: 8, Side: Ask, Type: Limit, Price: 100, Qty: 5})

	in := &Order{ID: 3, Owner: 9, Side: Bid, Type: Limit, Price: 100, Qty: 10}
	trades, err := b.Insert(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 {
		t.Fatalf("head is same-owner, no trade should print: %v", trades)
	}
	if in.Status != Cancelled {
		t.Error("incoming should be cancelled by self-trade prevention")
	}
	if b.Len() != 2 {
		t.Error("resting orders must be untouched")
	}
}

func TestDepthAggregatesPerLevel(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Bid, 100, 5))
	b.Insert(limit(2, Bid, 100, 3))
	b.Insert(limit(3, Bid, 99, 2))
	b.Insert(limit(4, Ask, 101, 4))

	bids, asks := b.Depth()
	if len(bids) != 2 || len(asks) != 1 {
		t.Fatalf("depth shape wrong: bids=%v asks=%v", bids, asks)
	}
	if bids[0] != (LevelDepth{Price: 100, Qty: 8, Orders: 2}) {
		t.Errorf("top bid level = %v", bids[0])
	}
	if bids[1].Price != 99 || asks[0].Price != 101 {
		t.Error("depth ordering wrong")
	}
}

func TestTakeRemovedReportsUnlinkedOrders(t *testing.T) {
	b := newTestBook()
	b.Insert(limit(1, Ask, 100, 5))
	b.Insert(limit(2, Bid, 100, 5)) // fills order 1
	b.TakeRemoved()

	b.Insert(limit(3, Bid, 100, 5))
	b.Cancel(3)
	removed := b.TakeRemoved()
	if len(removed) != 1 || removed[0].ID != 3 || removed[0].Status != Cancelled {
		t.Errorf("removed = %v", removed)
	}
	if len(b.TakeRemoved()) != 0 {
		t.Error("drain should reset the removed list")
	}
}
