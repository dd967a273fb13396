// Package broadcaster drains the trade outbox into Kafka. It is the only
// consumer of outbox records and runs outside the engine's critical section,
// so a slow or dead broker never stalls matching.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"kestrel/infra/outbox"
)

type Broadcaster struct {
	producer sarama.SyncProducer
	box      *outbox.Outbox
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(brokers []string, topic string, box *outbox.Outbox, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Broadcaster{
		producer: producer,
		box:      box,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Run drains pending records until ctx is cancelled. Records advance
// NEW -> SENT -> ACKED; a crash between SENT and ACKED resends the record,
// delivery is at-least-once and consumers dedup on event_id.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drain()
		}
	}
}

func (b *Broadcaster) drain() {
	err := b.box.ScanPending(func(rec *outbox.Record) error {
		if err := b.box.MarkSent(rec.Seq); err != nil {
			return err
		}

		_, _, err := b.producer.SendMessage(&sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
			Value: sarama.ByteEncoder(rec.Payload),
		})
		if err != nil {
			// stays SENT, retried on the next pass
			b.log.Warn("trade publish failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
			return nil
		}

		return b.box.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error("outbox drain failed", zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
