package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kestrel/api/httpserver"
	"kestrel/config"
	"kestrel/domain/book"
	"kestrel/infra/kafka"
	"kestrel/infra/memory"
	"kestrel/infra/outbox"
	"kestrel/infra/sequence"
	"kestrel/infra/wal"
	"kestrel/jobs/broadcaster"
	"kestrel/jobs/depth"
	"kestrel/jobs/snapshotter"
	"kestrel/service"
	"kestrel/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(*configPath, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(configPath string, log *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Info("starting", zap.String("instrument", cfg.Instrument))

	selfTrade := book.SelfTradeAllow
	if cfg.Book.CancelSelfTrades {
		selfTrade = book.SelfTradeCancelIncoming
	}
	b := book.New(book.Config{
		Instrument:            cfg.Instrument,
		AllowNonPositivePrice: cfg.Book.AllowNegativePrices,
		SelfTrade:             selfTrade,
	})

	pool := memory.NewPool(func() *book.Order { return new(book.Order) })
	ring := memory.NewRetireRing(cfg.Ring.Size)
	reader := snapshot.NewReader()

	lastSeq, err := service.Restore(b, pool, cfg.Snap.Dir, cfg.WAL.Dir, wal.ProtoSerializer{}, log)
	if err != nil {
		return err
	}

	w, err := wal.Open(wal.Config{
		Dir:             cfg.WAL.Dir,
		SegmentSize:     cfg.WAL.SegmentSize,
		SegmentDuration: cfg.WAL.SegmentDuration.Duration,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	box, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = box.Close() }()

	svc := service.NewOrderService(b, pool, ring, reader, sequence.New(lastSeq), w, box, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go snapshotter.New(svc, cfg.Snap.Dir, cfg.Snap.Interval.Duration, log).Run(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Ring.EpochInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.AdvanceEpoch()
			}
		}
	}()

	if !cfg.Kafka.Disabled {
		bc, err := broadcaster.New(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, box, cfg.Kafka.DrainInterval.Duration, log)
		if err != nil {
			return err
		}
		defer func() { _ = bc.Close() }()
		go bc.Run(ctx)

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DepthTopic)
		defer func() { _ = producer.Close() }()
		go depth.New(svc, producer, cfg.Kafka.DepthInterval.Duration, log).Run(ctx)
	}

	srv := httpserver.New(cfg.HTTP.Addr, svc, log)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	// final snapshot keeps the next boot's replay short
	if err := svc.WriteSnapshot(&snapshot.Writer{Dir: cfg.Snap.Dir}); err != nil {
		log.Warn("final snapshot failed", zap.Error(err))
	}
	return nil
}
