package trading

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/skalibog/spothook/pkg/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeExchange struct {
	mu sync.Mutex

	prices    map[string][]float64
	lastPrice map[string]float64
	priceErr  map[string]error
	closes    map[string][]float64
	balances  map[string]float64
	change24h map[string]float64

	orders      []models.OrderRequest
	placeOrder  func(req models.OrderRequest) (*models.OrderResult, error)
	orderStatus func(symbol, clientOrderID string) (*models.OrderResult, error)
	panicOn     string
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		prices:    map[string][]float64{},
		lastPrice: map[string]float64{},
		priceErr:  map[string]error{},
		closes:    map[string][]float64{},
		balances:  map[string]float64{"USDT": 1000, "BTC": 1, "ETH": 10, "SOL": 100},
		change24h: map[string]float64{},
	}
}

func (f *fakeExchange) LastPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if symbol == f.panicOn {
		panic("broken exchange adapter")
	}
	if err := f.priceErr[symbol]; err != nil {
		return 0, err
	}
	seq := f.prices[symbol]
	if len(seq) == 0 {
		return 0, errors.New("no price configured")
	}
	price := seq[0]
	if len(seq) > 1 {
		f.prices[symbol] = seq[1:]
	}
	f.lastPrice[symbol] = price
	return price, nil
}

func (f *fakeExchange) RecentCloses(_ context.Context, symbol, _ string, count int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	closes := f.closes[symbol]
	if len(closes) < count {
		return nil, models.ErrInsufficientData
	}
	return closes[len(closes)-count:], nil
}

func (f *fakeExchange) FreeBalance(_ context.Context, asset string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[asset], nil
}

func (f *fakeExchange) PriceChangePercent24h(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.change24h[symbol], nil
}

func (f *fakeExchange) PlaceMarketOrder(_ context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	price := f.lastPrice[req.Symbol]
	place := f.placeOrder
	f.mu.Unlock()

	if place != nil {
		return place(req)
	}
	return &models.OrderResult{
		ClientOrderID:         req.ClientOrderID,
		Status:                models.OrderStatusFilled,
		ExecutedQuantity:      req.Quantity,
		CumulativeQuoteAmount: req.Quantity * price,
	}, nil
}

func (f *fakeExchange) OrderStatus(_ context.Context, symbol, clientOrderID string) (*models.OrderResult, error) {
	if f.orderStatus == nil {
		return nil, models.ErrOrderNotFound
	}
	return f.orderStatus(symbol, clientOrderID)
}

func (f *fakeExchange) placed() []models.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRequest(nil), f.orders...)
}

type fakeStore struct {
	mu      sync.Mutex
	updates []models.SymbolConfig
	err     error
	dirty   bool
	flushes int
}

func (s *fakeStore) Update(cfg models.SymbolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, cfg)
	if s.err != nil {
		s.dirty = true
	}
	return s.err
}

func (s *fakeStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.dirty = false
	return nil
}

func (s *fakeStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

type journalEntry struct {
	category string
	message  string
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journalEntry
	trades  []models.TradeRecord
}

func (j *fakeJournal) Append(category, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{category, message})
}

func (j *fakeJournal) RecordTrade(record models.TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, record)
}

func (j *fakeJournal) LastBuy(symbol string) (*models.TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.trades) - 1; i >= 0; i-- {
		if j.trades[i].Symbol == symbol && j.trades[i].Side == models.SideBuy {
			t := j.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (j *fakeJournal) categories() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.entries {
		out = append(out, e.category)
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Send(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

type harness struct {
	exchange *fakeExchange
	store    *fakeStore
	journal  *fakeJournal
	notifier *fakeNotifier
	deps     *Deps
}

func newHarness() *harness {
	h := &harness{
		exchange: newFakeExchange(),
		store:    &fakeStore{},
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
	}
	h.deps = &Deps{
		Exchange:        h.exchange,
		Store:           h.store,
		Journal:         h.journal,
		Notifier:        h.notifier,
		AverageInterval: "1d",
		CallTimeout:     time.Second,
		Now:             func() time.Time { return testNow },
	}
	return h
}

// symbolConfig конфигурация без фильтров и без простоя
func symbolConfig(base string, lop float64) models.SymbolConfig {
	cfg := models.DefaultSymbolConfig()
	cfg.BaseCurrency = base
	cfg.LastOperationPrice = lop
	cfg.LastTradeTimeStamp = unixSeconds(testNow.Add(-time.Hour))
	cfg.AvoidBuyOnDailyIncrease = false
	cfg.AvoidBuyOnAverageIncrease = false
	return cfg
}

func (h *harness) session(cfg models.SymbolConfig) *Session {
	return NewSession(cfg, PriceThresholdStrategy{}, h.deps)
}
