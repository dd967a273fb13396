// Package depth periodically publishes an aggregated book snapshot to Kafka.
// The feed is best-effort market data; trades take the durable outbox path.
package depth

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"kestrel/domain/book"
	"kestrel/infra/kafka"
)

// BookSource is the read surface the publisher needs from the engine.
type BookSource interface {
	Instrument() string
	Depth() (bids, asks []book.LevelDepth)
}

type Update struct {
	Instrument string            `json:"instrument"`
	Time       time.Time         `json:"time"`
	Bids       []book.LevelDepth `json:"bids"`
	Asks       []book.LevelDepth `json:"asks"`
}

type Publisher struct {
	src      BookSource
	producer *kafka.Producer
	interval time.Duration
	log      *zap.Logger
}

func New(src BookSource, producer *kafka.Producer, interval time.Duration, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{src: src, producer: producer, interval: interval, log: log}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *Publisher) publish(ctx context.Context) {
	bids, asks := p.src.Depth()
	u := Update{
		Instrument: p.src.Instrument(),
		Time:       time.Now().UTC(),
		Bids:       bids,
		Asks:       asks,
	}

	payload, err := json.Marshal(u)
	if err != nil {
		p.log.Error("depth marshal failed", zap.Error(err))
		return
	}

	if err := p.producer.Send(ctx, []byte(u.Instrument), payload); err != nil {
		p.log.Warn("depth publish failed", zap.Error(err))
	}
}
