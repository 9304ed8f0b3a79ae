package technical

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-9)

	v, err = SMA([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = SMA(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestEMA(t *testing.T) {
	v, err := EMA([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 3.148, v, 1e-9)

	_, err = EMA([]float64{1})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 15)
	falling := make([]float64, 15)
	flat := make([]float64, 15)
	for i := range rising {
		rising[i] = float64(100 + i)
		falling[i] = float64(100 - i)
		flat[i] = 100
	}

	for _, mode := range []RSIMode{RSIModeSMA, RSIModeEMA} {
		t.Run(string(mode), func(t *testing.T) {
			v, err := RSI(rising, mode)
			require.NoError(t, err)
			assert.Equal(t, 100.0, v)

			v, err = RSI(falling, mode)
			require.NoError(t, err)
			assert.InDelta(t, 0.0, v, 1e-9)

			v, err = RSI(flat, mode)
			require.NoError(t, err)
			assert.Equal(t, 50.0, v)
		})
	}

	// прирост 2, потеря 1 => RS = 2
	v, err := RSI([]float64{10, 12, 11}, RSIModeSMA)
	require.NoError(t, err)
	assert.InDelta(t, 100-100/3.0, v, 1e-9)

	_, err = RSI([]float64{1}, RSIModeSMA)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = RSI([]float64{1, 2}, "wilder")
	assert.Error(t, err)
}

func TestBollingerBands(t *testing.T) {
	series := []float64{10, 12, 11, 15, 13, 9, 14}

	bands, err := BollingerBands(series, 2)
	require.NoError(t, err)

	sma, err := SMA(series)
	require.NoError(t, err)

	assert.InDelta(t, sma, bands.Mid, 1e-9)
	assert.InDelta(t, bands.Upper-bands.Mid, bands.Mid-bands.Lower, 1e-9)
	assert.Greater(t, bands.Upper, bands.Mid)

	bands, err = BollingerBands([]float64{2, 4}, 2)
	require.NoError(t, err)
	// популяционное отклонение {2,4} равно 1
	assert.InDelta(t, 5.0, bands.Upper, 1e-9)
	assert.InDelta(t, 1.0, bands.Lower, 1e-9)

	_, err = BollingerBands(nil, 2)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestBollingerBandsLargePricesLowVariance(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = 65000.12
		if i%2 == 1 {
			series[i] = 65000.13
		}
	}

	bands, err := BollingerBands(series, 2)
	require.NoError(t, err)
	assert.InDelta(t, 65000.125, bands.Mid, 1e-9)
	// популяционное отклонение 0.005
	assert.InDelta(t, 0.01, bands.Upper-bands.Mid, 1e-7)
	assert.InDelta(t, 0.01, bands.Mid-bands.Lower, 1e-7)
}

type fakeCloses struct {
	closes map[string][]float64
	err    error
	calls  []string
}

func (f *fakeCloses) RecentCloses(_ context.Context, symbol, interval string, count int) ([]float64, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s/%s/%d", symbol, interval, count))
	if f.err != nil {
		return nil, f.err
	}
	series := f.closes[interval]
	if len(series) > count {
		series = series[len(series)-count:]
	}
	return series, nil
}

func TestAnalyzerUsesConfiguredWindows(t *testing.T) {
	fourHour := make([]float64, 30)
	daily := make([]float64, 30)
	for i := range fourHour {
		fourHour[i] = float64(100 + i)
		daily[i] = float64(200 - i)
	}
	source := &fakeCloses{closes: map[string][]float64{"4h": fourHour, "1d": daily}}

	cfg := config.Default().Signal.Technical
	set, err := NewAnalyzer(cfg).Analyze(context.Background(), source, "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"BTCUSDT/4h/15",
		"BTCUSDT/4h/20",
		"BTCUSDT/4h/9",
		"BTCUSDT/4h/9",
		"BTCUSDT/1d/9",
	}, source.calls)
	assert.Equal(t, 100.0, set.RSI)
	assert.InDelta(t, 125.0, set.SMA, 1e-9)
	assert.Less(t, set.EMALong, 200.0)
}

func TestAnalyzerPropagatesSourceError(t *testing.T) {
	source := &fakeCloses{err: models.ErrTransientNetwork}

	_, err := NewAnalyzer(config.Default().Signal.Technical).Analyze(context.Background(), source, "BTCUSDT")
	assert.True(t, errors.Is(err, models.ErrTransientNetwork))
}
