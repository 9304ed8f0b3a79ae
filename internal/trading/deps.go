package trading

import (
	"context"
	"time"

	"github.com/skalibog/spothook/internal/metrics"
	"github.com/skalibog/spothook/internal/storage"
	"github.com/skalibog/spothook/pkg/models"
)

// Exchange операции биржи, которые нужны торговой сессии
type Exchange interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
	RecentCloses(ctx context.Context, symbol, interval string, count int) ([]float64, error)
	FreeBalance(ctx context.Context, asset string) (float64, error)
	PriceChangePercent24h(ctx context.Context, symbol string) (float64, error)
	PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error)
	OrderStatus(ctx context.Context, symbol, clientOrderID string) (*models.OrderResult, error)
}

// ConfigStore хранилище конфигураций символов
type ConfigStore interface {
	Update(cfg models.SymbolConfig) error
	Flush() error
	Dirty() bool
}

// Journal журнал событий и сделок
type Journal interface {
	Append(category, message string)
	RecordTrade(record models.TradeRecord)
	LastBuy(symbol string) (*models.TradeRecord, error)
}

// Notifier доставка уведомлений без ожидания
type Notifier interface {
	Send(ctx context.Context, message string)
}

// Deps общие зависимости сессий
type Deps struct {
	Exchange Exchange
	Store    ConfigStore
	Journal  Journal
	Notifier Notifier
	Recorder storage.Recorder
	Metrics  *metrics.Metrics

	// AverageInterval интервал свечей для средней цены
	AverageInterval string
	// CallTimeout ограничение на один шаг сессии
	CallTimeout time.Duration
	Now         func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) notify(ctx context.Context, message string) {
	if d.Notifier != nil {
		d.Notifier.Send(ctx, message)
	}
}

func (d *Deps) recorder() storage.Recorder {
	if d.Recorder == nil {
		return storage.Nop{}
	}
	return d.Recorder
}
