package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/models"
)

// Recorder сохраняет историю состояний символов и сделок
type Recorder interface {
	RecordStatus(ctx context.Context, status models.SymbolStatus) error
	RecordTrade(ctx context.Context, trade models.TradeRecord) error
	Close()
}

// InfluxDBStorage реализует интерфейс Recorder с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// RecordStatus сохраняет состояние символа после цикла
func (s *InfluxDBStorage) RecordStatus(ctx context.Context, status models.SymbolStatus) error {
	if err := s.writeAPI.WritePoint(ctx, statusPoint(status)); err != nil {
		return fmt.Errorf("ошибка записи состояния %s: %w", status.Symbol, err)
	}
	return nil
}

// RecordTrade сохраняет исполненную сделку
func (s *InfluxDBStorage) RecordTrade(ctx context.Context, trade models.TradeRecord) error {
	if err := s.writeAPI.WritePoint(ctx, tradePoint(trade)); err != nil {
		return fmt.Errorf("ошибка записи сделки %s: %w", trade.Symbol, err)
	}
	return nil
}

func statusPoint(status models.SymbolStatus) *write.Point {
	return influxdb2.NewPoint(
		"symbol_status",
		map[string]string{
			"symbol":   status.Symbol,
			"strategy": status.Strategy,
		},
		map[string]interface{}{
			"price":                status.CurrentPrice,
			"last_operation_price": status.LastOperationPrice,
			"difference_percent":   status.DifferencePercent,
			"owned":                status.Owned,
			"hooked":               status.Hooked,
			"hook_price":           status.HookPrice,
		},
		status.UpdatedAt,
	)
}

func tradePoint(trade models.TradeRecord) *write.Point {
	return influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol": trade.Symbol,
			"side":   string(trade.Side),
		},
		map[string]interface{}{
			"quantity":     trade.Quantity,
			"quote_amount": trade.QuoteAmount,
			"price":        trade.Price,
		},
		trade.Time,
	)
}

// Nop ничего не сохраняет, используется когда storage выключен
type Nop struct{}

func (Nop) RecordStatus(context.Context, models.SymbolStatus) error { return nil }
func (Nop) RecordTrade(context.Context, models.TradeRecord) error { return nil }
func (Nop) Close() {}
