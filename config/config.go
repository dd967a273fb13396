// Package config loads engine configuration from TOML with sane defaults
// for local runs.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values can be written as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	Instrument string `toml:"instrument"`

	Book   BookConfig   `toml:"book"`
	HTTP   HTTPConfig   `toml:"http"`
	WAL    WALConfig    `toml:"wal"`
	Snap   SnapConfig   `toml:"snapshot"`
	Outbox OutboxConfig `toml:"outbox"`
	Kafka  KafkaConfig  `toml:"kafka"`
	Ring   RingConfig   `toml:"ring"`
}

type BookConfig struct {
	// AllowNegativePrices admits zero and negative limit prices, for
	// spread-style instruments.
	AllowNegativePrices bool `toml:"allow_negative_prices"`
	// CancelSelfTrades rejects the incoming order when it would match an
	// order from the same owner.
	CancelSelfTrades bool `toml:"cancel_self_trades"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type WALConfig struct {
	Dir             string   `toml:"dir"`
	SegmentSize     int64    `toml:"segment_size"`
	SegmentDuration Duration `toml:"segment_duration"`
}

type SnapConfig struct {
	Dir      string   `toml:"dir"`
	Interval Duration `toml:"interval"`
}

type OutboxConfig struct {
	Dir string `toml:"dir"`
}

type KafkaConfig struct {
	Brokers       []string `toml:"brokers"`
	TradeTopic    string   `toml:"trade_topic"`
	DepthTopic    string   `toml:"depth_topic"`
	DrainInterval Duration `toml:"drain_interval"`
	DepthInterval Duration `toml:"depth_interval"`
	// Disabled runs the engine without Kafka; trades still accumulate in
	// the outbox until a broadcaster drains them.
	Disabled bool `toml:"disabled"`
}

type RingConfig struct {
	Size          uint64   `toml:"size"`
	EpochInterval Duration `toml:"epoch_interval"`
}

func Default() Config {
	return Config{
		Instrument: "BTC-USD",
		HTTP:       HTTPConfig{Addr: ":8080"},
		WAL: WALConfig{
			Dir:             "data/wal",
			SegmentSize:     2 << 20,
			SegmentDuration: Duration{time.Minute},
		},
		Snap: SnapConfig{
			Dir:      "data/snapshot",
			Interval: Duration{time.Minute},
		},
		Outbox: OutboxConfig{Dir: "data/outbox"},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			TradeTopic:    "kestrel.trades",
			DepthTopic:    "kestrel.depth",
			DrainInterval: Duration{100 * time.Millisecond},
			DepthInterval: Duration{time.Second},
		},
		Ring: RingConfig{
			Size:          1 << 14,
			EpochInterval: Duration{10 * time.Millisecond},
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Instrument == "" {
		return fmt.Errorf("config: instrument must be set")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("config: wal.dir must be set")
	}
	if c.Snap.Dir == "" {
		return fmt.Errorf("config: snapshot.dir must be set")
	}
	if c.Outbox.Dir == "" {
		return fmt.Errorf("config: outbox.dir must be set")
	}
	return nil
}
