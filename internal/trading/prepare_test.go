package trading

import (
	"context"
	"testing"

	"github.com/skalibog/spothook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatingExchange struct {
	*fakeExchange
	known map[string]bool
}

func (v validatingExchange) ValidateSymbol(_ context.Context, symbol string) error {
	if !v.known[symbol] {
		return models.ErrUnknownSymbol
	}
	return nil
}

func TestPrepareReplacesPlaceholders(t *testing.T) {
	ex := newFakeExchange()
	ex.prices["BTCUSDT"] = []float64{64000}

	btc := models.DefaultSymbolConfig()
	eth := models.DefaultSymbolConfig()
	eth.BaseCurrency = "ETH"
	eth.LastOperationPrice = 3000
	eth.LastTradeTimeStamp = 1700000000
	disabled := models.DefaultSymbolConfig()
	disabled.BaseCurrency = "DOGE"
	disabled.Enabled = false

	out, changed, err := Prepare(context.Background(), ex, []models.SymbolConfig{btc, eth, disabled}, testNow)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, out, 3)

	assert.Equal(t, 64000.0, out[0].LastOperationPrice)
	assert.Equal(t, unixSeconds(testNow), out[0].LastTradeTimeStamp)
	assert.Equal(t, eth, out[1])
	assert.Equal(t, -1.0, out[2].LastOperationPrice)

	// исходный срез не меняется
	assert.Equal(t, -1.0, btc.LastOperationPrice)

	_, changed, err = Prepare(context.Background(), ex, []models.SymbolConfig{eth}, testNow)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPrepareRejectsUnknownSymbol(t *testing.T) {
	ex := validatingExchange{fakeExchange: newFakeExchange(), known: map[string]bool{"BTCUSDT": true}}
	ex.prices["BTCUSDT"] = []float64{64000}

	cfg := models.DefaultSymbolConfig()
	cfg.BaseCurrency = "NOPE"

	_, _, err := Prepare(context.Background(), ex, []models.SymbolConfig{models.DefaultSymbolConfig(), cfg}, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "NOPEUSDT")
}

func TestNewSessionsSkipsDisabled(t *testing.T) {
	h := newHarness()
	off := symbolConfig("ETH", 100)
	off.Enabled = false
	bad := symbolConfig("SOL", 100)
	bad.Strategy = "martingale"

	sessions, err := NewSessions([]models.SymbolConfig{symbolConfig("BTC", 100), off}, h.deps, func(name string) (Strategy, error) {
		return NewStrategy(name, nil)
	})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "BTCUSDT", sessions[0].Symbol())

	_, err = NewSessions([]models.SymbolConfig{bad}, h.deps, func(name string) (Strategy, error) {
		return NewStrategy(name, nil)
	})
	assert.ErrorIs(t, err, models.ErrConfigSchema)
}
