package persistence

import (
	"testing"
	"time"

	"github.com/driftwood-labs/sigengine/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAdapterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fa, err := NewFileAdapter(dir)
	require.NoError(t, err)

	pendingAt := time.Now().Add(-12 * time.Hour).UTC().Truncate(time.Second)
	sig := signal.ActiveSignal{
		ID: "id-1", Symbol: "BTCUSDT", StrategyName: "strat", ExchangeName: "binance",
		Position: signal.Long, PriceOpen: 50000, PriceTakeProfit: 52000, PriceStopLoss: 49000,
		MinuteEstimatedTime: 1440, ScheduledAt: pendingAt, PendingAt: pendingAt,
	}

	require.NoError(t, fa.SaveActive(sig))

	loaded, ok, err := fa.LoadActive("BTCUSDT", "strat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sig.PendingAt.Equal(loaded.PendingAt), "pendingAt must round-trip unchanged")
	assert.Equal(t, sig, loaded)

	require.NoError(t, fa.DeleteActive("BTCUSDT", "strat"))
	_, ok, err = fa.LoadActive("BTCUSDT", "strat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileAdapterMissingRecord(t *testing.T) {
	dir := t.TempDir()
	fa, err := NewFileAdapter(dir)
	require.NoError(t, err)

	_, ok, err := fa.LoadActive("NOPE", "strat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckOwnership(t *testing.T) {
	sig := signal.ActiveSignal{ExchangeName: "binance", StrategyName: "s1", Symbol: "BTCUSDT"}
	assert.True(t, CheckOwnership(sig, "binance", "s1", "BTCUSDT"))
	assert.False(t, CheckOwnership(sig, "binance", "s2", "BTCUSDT"))
	assert.False(t, CheckOwnership(sig, "coinbase", "s1", "BTCUSDT"))
}

func TestNoopAdapter(t *testing.T) {
	var a NoopAdapter
	require.NoError(t, a.SaveActive(signal.ActiveSignal{}))
	_, ok, err := a.LoadActive("x", "y")
	require.NoError(t, err)
	assert.False(t, ok)
}
