package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kestrel.toml")
	body := `
instrument = "ETH-USD"

[book]
cancel_self_trades = true

[wal]
dir = "/var/lib/kestrel/wal"
segment_duration = "30s"

[kafka]
brokers = ["k1:9092", "k2:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", cfg.Instrument)
	assert.True(t, cfg.Book.CancelSelfTrades)
	assert.Equal(t, "/var/lib/kestrel/wal", cfg.WAL.Dir)
	assert.Equal(t, 30*time.Second, cfg.WAL.SegmentDuration.Duration)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched sections keep defaults
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "kestrel.trades", cfg.Kafka.TradeTopic)
}

func TestLoadRejectsMissingInstrument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kestrel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`instrument = ""`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
