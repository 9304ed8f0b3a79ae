package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// Metrics счетчики торгового цикла. Методы безопасны для nil.
type Metrics struct {
	CyclesTotal    prometheus.Counter
	CycleDuration  prometheus.Histogram
	SymbolErrors   *prometheus.CounterVec // labels: symbol
	OrdersTotal    *prometheus.CounterVec // labels: symbol, side, outcome
	HooksEngaged   *prometheus.CounterVec // labels: symbol, side
	IdleLopUpdates *prometheus.CounterVec // labels: symbol
	CurrentPrice   *prometheus.GaugeVec   // labels: symbol
	LastOpPrice    *prometheus.GaugeVec   // labels: symbol
	HookState      *prometheus.GaugeVec   // labels: symbol; 0=idle, 1=buy, -1=sell
	PendingOrders  prometheus.Gauge
	NotifyFailures prometheus.Counter
}

// New создает метрики и регистрирует их в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spothook_cycles_total",
			Help: "Completed passes over all symbols",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spothook_cycle_duration_seconds",
			Help:    "Duration of one pass over all symbols",
			Buckets: prometheus.DefBuckets,
		}),
		SymbolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spothook_symbol_errors_total",
			Help: "Per-symbol evaluation failures",
		}, []string{"symbol"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spothook_orders_total",
			Help: "Order attempts by outcome",
		}, []string{"symbol", "side", "outcome"}),
		HooksEngaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spothook_hooks_engaged_total",
			Help: "Hook engagements",
		}, []string{"symbol", "side"}),
		IdleLopUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spothook_idle_lop_updates_total",
			Help: "Last operation price recomputations after idle days",
		}, []string{"symbol"}),
		CurrentPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spothook_current_price",
			Help: "Last observed price",
		}, []string{"symbol"}),
		LastOpPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spothook_last_operation_price",
			Help: "Anchor price of the last confirmed trade",
		}, []string{"symbol"}),
		HookState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spothook_hook_state",
			Help: "0 idle, 1 hooked for buy, -1 hooked for sell",
		}, []string{"symbol"}),
		PendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spothook_pending_orders",
			Help: "Orders with unresolved status",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spothook_notify_failures_total",
			Help: "Failed notification deliveries",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SymbolErrors,
		m.OrdersTotal,
		m.HooksEngaged,
		m.IdleLopUpdates,
		m.CurrentPrice,
		m.LastOpPrice,
		m.HookState,
		m.PendingOrders,
		m.NotifyFailures,
	)
	return m
}

func (m *Metrics) ObserveCycle(seconds float64) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(seconds)
}

func (m *Metrics) SymbolError(symbol string) {
	if m == nil {
		return
	}
	m.SymbolErrors.WithLabelValues(symbol).Inc()
}

func (m *Metrics) Order(symbol string, side models.Side, outcome models.OrderOutcome) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(symbol, string(side), outcome.String()).Inc()
}

func (m *Metrics) HookEngaged(symbol string, side models.Side) {
	if m == nil {
		return
	}
	m.HooksEngaged.WithLabelValues(symbol, string(side)).Inc()
}

func (m *Metrics) IdleUpdate(symbol string) {
	if m == nil {
		return
	}
	m.IdleLopUpdates.WithLabelValues(symbol).Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

// ObserveStatus обновляет датчики по состоянию символа
func (m *Metrics) ObserveStatus(s models.SymbolStatus) {
	if m == nil {
		return
	}
	m.CurrentPrice.WithLabelValues(s.Symbol).Set(s.CurrentPrice)
	m.LastOpPrice.WithLabelValues(s.Symbol).Set(s.LastOperationPrice)

	hook := 0.0
	if s.Hooked {
		hook = 1
		if s.Owned {
			hook = -1
		}
	}
	m.HookState.WithLabelValues(s.Symbol).Set(hook)
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingOrders.Set(float64(n))
}

// Server отдает /metrics
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer создает HTTP сервер метрик для gatherer
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start запускает сервер в отдельной горутине
func (s *Server) Start() {
	go func() {
		logger.Info("Сервер метрик запущен", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка сервера метрик", zap.Error(err))
		}
	}()
}

// Stop останавливает сервер
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn("Ошибка остановки сервера метрик", zap.Error(err))
	}
}
