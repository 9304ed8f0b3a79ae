package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/jpillora/backoff"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		step      string
		min       string
		precision int
		want      string
		wantErr   bool
	}{
		{"rounds down to step", 0.0012345, "0.00001000", "0.00001000", 8, "0.00123", false},
		{"coarse step", 12.97, "0.50000000", "1.00000000", 8, "12.5", false},
		{"precision only", 1.23456789, "", "", 3, "1.234", false},
		{"below minimum", 0.000004, "0.00001000", "0.00001000", 8, "", true},
		{"zero", 0, "0.00001000", "", 8, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdjustQuantity(tt.quantity, tt.step, tt.min, tt.precision)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrOrderRejected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"network", errors.New("connection reset"), models.ErrTransientNetwork},
		{"rate limit", &common.APIError{Code: codeTooManyRequests}, models.ErrTransientNetwork},
		{"invalid symbol", &common.APIError{Code: codeInvalidSymbol}, models.ErrUnknownSymbol},
		{"no such order", &common.APIError{Code: codeNoSuchOrder}, models.ErrOrderNotFound},
		{"known sentinel kept", fmt.Errorf("x: %w", models.ErrInsufficientData), models.ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}

	assert.NoError(t, classify("op", nil))
	assert.ErrorIs(t, classifyOrder(&common.APIError{Code: -1013, Message: "Filter failure"}), models.ErrOrderRejected)
}

func newTestClient(t *testing.T, handler http.Handler) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewBinanceClient(config.BinanceConfig{
		APIKey:                "key",
		APISecret:             "secret",
		RequestTimeoutSeconds: 1,
		MaxRetries:            1,
	})
	c.spot.BaseURL = srv.URL
	c.newBackoff = func() *backoff.Backoff {
		return &backoff.Backoff{Min: time.Millisecond, Max: time.Millisecond}
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLastPriceAndCloses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{{"symbol": r.URL.Query().Get("symbol"), "price": "30000.50"}})
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		rows := [][]any{
			{1700000000000, "1", "2", "0.5", "10", "100", 1700014399999, "1000", 10, "50", "500", "0"},
			{1700014400000, "10", "12", "9", "11", "100", 1700028799999, "1000", 10, "50", "500", "0"},
		}
		writeJSON(w, http.StatusOK, rows)
	})
	c := newTestClient(t, mux)

	price, err := c.LastPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 30000.5, price)

	closes, err := c.RecentCloses(context.Background(), "BTCUSDT", "4h", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, closes)

	_, err = c.RecentCloses(context.Background(), "BTCUSDT", "4h", 3)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestUnknownSymbol(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": codeInvalidSymbol, "msg": "Invalid symbol."})
	})
	c := newTestClient(t, mux)

	err := c.ValidateSymbol(context.Background(), "NOPEUSDT")
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
}

func exchangeInfoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symbols": []map[string]any{{
			"symbol":             "BTCUSDT",
			"baseAssetPrecision": 8,
			"filters": []map[string]any{{
				"filterType": "LOT_SIZE",
				"minQty":     "0.00001000",
				"maxQty":     "9000.00000000",
				"stepSize":   "0.00001000",
			}},
		}},
	})
}

func TestPlaceMarketOrderResubmitsWhenExchangeLostIt(t *testing.T) {
	var posts, gets atomic.Int32
	var quantity atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", exchangeInfoHandler)
	mux.HandleFunc("/api/v3/order", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.Method {
		case http.MethodPost:
			quantity.Store(r.Form.Get("quantity"))
			if posts.Add(1) == 1 {
				// первый ответ теряется по таймауту клиента
				time.Sleep(1500 * time.Millisecond)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"symbol":              "BTCUSDT",
				"clientOrderId":       r.Form.Get("newClientOrderId"),
				"status":              "FILLED",
				"executedQty":         "0.00123000",
				"cummulativeQuoteQty": "36.90000000",
			})
		case http.MethodGet:
			gets.Add(1)
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": codeNoSuchOrder, "msg": "Order does not exist."})
		}
	})
	c := newTestClient(t, mux)

	result, err := c.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol:        "BTCUSDT",
		Side:          models.SideBuy,
		Quantity:      0.0012345,
		ClientOrderID: "order-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Filled())
	assert.Equal(t, "order-1", result.ClientOrderID)
	assert.Equal(t, 36.9, result.CumulativeQuoteAmount)
	assert.Equal(t, "0.00123", quantity.Load())
	assert.Equal(t, int32(2), posts.Load())
	assert.Equal(t, int32(1), gets.Load())
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", exchangeInfoHandler)
	mux.HandleFunc("/api/v3/order", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": codeNewOrderReject, "msg": "Account has insufficient balance."})
	})
	c := newTestClient(t, mux)

	_, err := c.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTCUSDT", Side: models.SideSell, Quantity: 1, ClientOrderID: "order-2",
	})
	assert.ErrorIs(t, err, models.ErrOrderRejected)
	assert.Equal(t, models.OutcomeRejected, models.ClassifyOrder(nil, err))
}
