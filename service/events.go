package service

import (
	"time"

	"github.com/google/uuid"

	"kestrel/domain/book"
)

// TradeEvent is the JSON envelope staged in the outbox and published to
// Kafka. EventID makes downstream dedup possible even though delivery is
// at-least-once.
type TradeEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Instrument string    `json:"instrument"`
	MakerID    uint64    `json:"maker_id"`
	TakerID    uint64    `json:"taker_id"`
	Price      int64     `json:"price"`
	Qty        int64     `json:"qty"`
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
}

func newTradeEvent(instrument string, seq uint64, t book.Trade) TradeEvent {
	return TradeEvent{
		EventID:    uuid.New(),
		Instrument: instrument,
		MakerID:    t.MakerID,
		TakerID:    t.TakerID,
		Price:      t.Price,
		Qty:        t.Qty,
		Seq:        seq,
		Time:       time.Now().UTC(),
	}
}
