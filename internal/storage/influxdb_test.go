package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func TestStatusPoint(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := statusPoint(models.SymbolStatus{
		Symbol:             "BTCUSDT",
		Strategy:           models.StrategyPriceThreshold,
		CurrentPrice:       30000,
		LastOperationPrice: 29000,
		Hooked:             true,
		HookPrice:          29950,
		UpdatedAt:          at,
	})

	assert.Equal(t, "symbol_status", p.Name())
	assert.Equal(t, map[string]string{"symbol": "BTCUSDT", "strategy": "price_threshold"}, tags(p))
	f := fields(p)
	assert.Equal(t, 30000.0, f["price"])
	assert.Equal(t, true, f["hooked"])
	assert.Equal(t, at, p.Time())
}

func TestTradePoint(t *testing.T) {
	p := tradePoint(models.TradeRecord{Symbol: "ETHUSDT", Side: models.SideSell, Quantity: 2, QuoteAmount: 3600, Price: 1800})

	assert.Equal(t, "trades", p.Name())
	assert.Equal(t, "SELL", tags(p)["side"])
	assert.Equal(t, 3600.0, fields(p)["quote_amount"])
}

func TestNewInfluxDBStorageFailsOnUnhealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"name":"influxdb","message":"not ready","status":"fail"}`))
	}))
	defer srv.Close()

	_, err := NewInfluxDBStorage(context.Background(), config.StorageConfig{URL: srv.URL, Bucket: "spothook"})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.RecordStatus(context.Background(), models.SymbolStatus{}))
	assert.NoError(t, r.RecordTrade(context.Background(), models.TradeRecord{}))
}
