// Package snapshotter periodically persists the book and prunes the WAL and
// outbox behind the snapshot, bounding recovery time.
package snapshotter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kestrel/service"
	"kestrel/snapshot"
)

type Snapshotter struct {
	svc      *service.OrderService
	writer   *snapshot.Writer
	interval time.Duration
	log      *zap.Logger
}

func New(svc *service.OrderService, dir string, interval time.Duration, log *zap.Logger) *Snapshotter {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Snapshotter{
		svc:      svc,
		writer:   &snapshot.Writer{Dir: dir},
		interval: interval,
		log:      log,
	}
}

func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := s.svc.WriteSnapshot(s.writer); err != nil {
				s.log.Error("snapshot failed", zap.Error(err))
				continue
			}
			s.log.Info("snapshot written",
				zap.Uint64("seq", s.svc.LastSeq()),
				zap.Duration("took", time.Since(start)),
			)
		}
	}
}
