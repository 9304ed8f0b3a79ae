package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// lotFilter ограничения количества для символа
type lotFilter struct {
	stepSize  string
	minQty    string
	precision int
}

// BinanceClient клиент для взаимодействия со спотовым рынком Binance
type BinanceClient struct {
	spot       *binance.Client
	timeout    time.Duration
	maxRetries int

	mu      sync.Mutex
	filters map[string]lotFilter

	// newBackoff подменяется в тестах
	newBackoff func() *backoff.Backoff
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	// Переключатель тестовой сети глобальный в go-binance
	binance.UseTestnet = cfg.Testnet

	return &BinanceClient{
		spot:       binance.NewClient(cfg.APIKey, cfg.APISecret),
		timeout:    cfg.RequestTimeout(),
		maxRetries: cfg.MaxRetries,
		filters:    make(map[string]lotFilter),
		newBackoff: func() *backoff.Backoff {
			return &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}
		},
	}
}

// withRetry повторяет чтение при сетевых ошибках
func (c *BinanceClient) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := c.newBackoff()
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = classify(op, fn(callCtx))
		cancel()

		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == c.maxRetries {
			break
		}

		wait := b.Duration()
		logger.Debug("Повтор запроса к Binance",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %v: %w", op, ctx.Err(), models.ErrTransientNetwork)
		case <-time.After(wait):
		}
	}
	return err
}

// LastPrice последняя цена символа
func (c *BinanceClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := c.withRetry(ctx, "ошибка получения цены", func(ctx context.Context) error {
		prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			return fmt.Errorf("нет цены для %s", symbol)
		}
		price, err = parseFloat(prices[0].Price)
		return err
	})
	return price, err
}

// PriceChangePercent24h изменение цены за сутки в процентах
func (c *BinanceClient) PriceChangePercent24h(ctx context.Context, symbol string) (float64, error) {
	var change float64
	err := c.withRetry(ctx, "ошибка получения суточной статистики", func(ctx context.Context) error {
		stats, err := c.spot.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			return fmt.Errorf("нет статистики для %s", symbol)
		}
		change, err = parseFloat(stats[0].PriceChangePercent)
		return err
	})
	return change, err
}

// GetKlines получает исторические свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	var candles []*models.Candle
	err := c.withRetry(ctx, "ошибка получения свечей", func(ctx context.Context) error {
		klines, err := c.spot.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return err
		}

		candles = make([]*models.Candle, len(klines))
		for i, k := range klines {
			candle := &models.Candle{
				Symbol:    symbol,
				Interval:  interval,
				OpenTime:  time.UnixMilli(k.OpenTime),
				CloseTime: time.UnixMilli(k.CloseTime),
			}
			for _, f := range []struct {
				raw string
				dst *float64
			}{
				{k.Open, &candle.Open},
				{k.High, &candle.High},
				{k.Low, &candle.Low},
				{k.Close, &candle.Close},
				{k.Volume, &candle.Volume},
			} {
				if *f.dst, err = parseFloat(f.raw); err != nil {
					return fmt.Errorf("ошибка разбора свечи: %v", err)
				}
			}
			candles[i] = candle
		}
		return nil
	})
	return candles, err
}

// RecentCloses цены закрытия последних count свечей
func (c *BinanceClient) RecentCloses(ctx context.Context, symbol, interval string, count int) ([]float64, error) {
	candles, err := c.GetKlines(ctx, symbol, interval, count)
	if err != nil {
		return nil, err
	}
	if len(candles) < count {
		return nil, fmt.Errorf("%s %s: получено %d свечей из %d: %w", symbol, interval, len(candles), count, models.ErrInsufficientData)
	}
	return models.Closes(candles), nil
}

// FreeBalance свободный остаток актива
func (c *BinanceClient) FreeBalance(ctx context.Context, asset string) (float64, error) {
	var free float64
	err := c.withRetry(ctx, "ошибка получения баланса", func(ctx context.Context) error {
		account, err := c.spot.NewGetAccountService().Do(ctx)
		if err != nil {
			return err
		}
		for _, b := range account.Balances {
			if b.Asset == asset {
				free, err = parseFloat(b.Free)
				return err
			}
		}
		free = 0
		return nil
	})
	return free, err
}

// ValidateSymbol проверяет, что биржа знает символ, и кеширует LOT_SIZE
func (c *BinanceClient) ValidateSymbol(ctx context.Context, symbol string) error {
	_, err := c.lotFilter(ctx, symbol)
	return err
}

func (c *BinanceClient) lotFilter(ctx context.Context, symbol string) (lotFilter, error) {
	c.mu.Lock()
	f, ok := c.filters[symbol]
	c.mu.Unlock()
	if ok {
		return f, nil
	}

	err := c.withRetry(ctx, "ошибка получения информации о символе", func(ctx context.Context) error {
		info, err := c.spot.NewExchangeInfoService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		for _, s := range info.Symbols {
			if s.Symbol != symbol {
				continue
			}
			f = lotFilter{precision: s.BaseAssetPrecision}
			if lot := s.LotSizeFilter(); lot != nil {
				f.stepSize = lot.StepSize
				f.minQty = lot.MinQuantity
			}
			return nil
		}
		return fmt.Errorf("символ %s: %w", symbol, models.ErrUnknownSymbol)
	})
	if err != nil {
		return lotFilter{}, err
	}

	c.mu.Lock()
	c.filters[symbol] = f
	c.mu.Unlock()
	return f, nil
}

// OrderStatus запрашивает ордер по client id
func (c *BinanceClient) OrderStatus(ctx context.Context, symbol, clientOrderID string) (*models.OrderResult, error) {
	var result *models.OrderResult
	err := c.withRetry(ctx, "ошибка запроса ордера", func(ctx context.Context) error {
		order, err := c.spot.NewGetOrderService().
			Symbol(symbol).
			OrigClientOrderID(clientOrderID).
			Do(ctx)
		if err != nil {
			return err
		}
		result, err = orderResult(order.ClientOrderID, string(order.Status), order.ExecutedQuantity, order.CummulativeQuoteQuantity)
		return err
	})
	return result, err
}

// PlaceMarketOrder отправляет рыночный ордер. Если ответ потерян, ордер ищется
// по client id и отправляется повторно с тем же id только когда биржа его не знает.
func (c *BinanceClient) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	filter, err := c.lotFilter(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	quantity, err := AdjustQuantity(req.Quantity, filter.stepSize, filter.minQty, filter.precision)
	if err != nil {
		return nil, err
	}

	logger.Info("Отправка рыночного ордера",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", quantity),
		zap.String("client_order_id", req.ClientOrderID),
	)

	result, err := c.submit(ctx, req, quantity)
	if err == nil || !isTransient(err) {
		return result, err
	}

	logger.Warn("Ответ на ордер не получен, проверяем статус",
		zap.String("symbol", req.Symbol),
		zap.String("client_order_id", req.ClientOrderID),
		zap.Error(err),
	)

	result, statusErr := c.OrderStatus(ctx, req.Symbol, req.ClientOrderID)
	if statusErr == nil {
		return result, nil
	}
	if !errors.Is(statusErr, models.ErrOrderNotFound) {
		return nil, &models.AmbiguousOrderError{Symbol: req.Symbol, ClientOrderID: req.ClientOrderID, Err: statusErr}
	}

	// Биржа ордер не получила, повторяем с тем же client id
	result, err = c.submit(ctx, req, quantity)
	if err == nil || !isTransient(err) {
		return result, err
	}
	if result, statusErr = c.OrderStatus(ctx, req.Symbol, req.ClientOrderID); statusErr == nil {
		return result, nil
	}
	return nil, &models.AmbiguousOrderError{Symbol: req.Symbol, ClientOrderID: req.ClientOrderID, Err: err}
}

func (c *BinanceClient) submit(ctx context.Context, req models.OrderRequest, quantity string) (*models.OrderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.spot.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(req.ClientOrderID).
		Do(callCtx)
	if err != nil {
		return nil, classifyOrder(err)
	}
	return orderResult(resp.ClientOrderID, string(resp.Status), resp.ExecutedQuantity, resp.CummulativeQuoteQuantity)
}

func orderResult(clientOrderID, status, executed, quote string) (*models.OrderResult, error) {
	result := &models.OrderResult{ClientOrderID: clientOrderID, Status: status}

	var err error
	if executed != "" {
		if result.ExecutedQuantity, err = parseFloat(executed); err != nil {
			return nil, fmt.Errorf("ошибка разбора executedQty: %v", err)
		}
	}
	if quote != "" {
		if result.CumulativeQuoteAmount, err = parseFloat(quote); err != nil {
			return nil, fmt.Errorf("ошибка разбора cummulativeQuoteQty: %v", err)
		}
	}
	return result, nil
}
