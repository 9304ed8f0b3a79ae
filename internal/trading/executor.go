package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// execute отправляет рыночный ордер стороны хука
func (s *Session) execute(ctx context.Context, price float64) error {
	side := s.config.NextSide()
	req := models.OrderRequest{
		Symbol:        s.Symbol(),
		Side:          side,
		ClientOrderID: uuid.NewString(),
	}

	quantity, err := s.orderQuantity(ctx, side, price)
	if err != nil {
		return s.applyOrder(ctx, req, price, nil, err)
	}
	req.Quantity = quantity

	result, err := s.deps.Exchange.PlaceMarketOrder(ctx, req)
	return s.applyOrder(ctx, req, price, result, err)
}

// orderQuantity объем ордера в базовой валюте
func (s *Session) orderQuantity(ctx context.Context, side models.Side, price float64) (float64, error) {
	cfg := s.config

	if side == models.SideBuy {
		quote := cfg.TradeAmountBuy
		if cfg.TradeWithPercentBuy {
			free, err := s.deps.Exchange.FreeBalance(ctx, cfg.TargetCurrency)
			if err != nil {
				return 0, fmt.Errorf("ошибка получения баланса %s: %w", cfg.TargetCurrency, err)
			}
			quote = free * cfg.TradeWealthPercentBuy / 100
		}
		if quote <= 0 || price <= 0 {
			return 0, fmt.Errorf("недостаточно %s для покупки: %w", cfg.TargetCurrency, models.ErrOrderRejected)
		}
		return quote / price, nil
	}

	free, err := s.deps.Exchange.FreeBalance(ctx, cfg.BaseCurrency)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса %s: %w", cfg.BaseCurrency, err)
	}
	quantity := free * cfg.TradeWealthPercentSell / 100
	if quantity <= 0 {
		return 0, fmt.Errorf("недостаточно %s для продажи: %w", cfg.BaseCurrency, models.ErrOrderRejected)
	}
	return quantity, nil
}

// applyOrder применяет итог ордера. Конфигурация и хук меняются только при FILLED.
func (s *Session) applyOrder(ctx context.Context, req models.OrderRequest, price float64, result *models.OrderResult, err error) error {
	outcome := models.ClassifyOrder(result, err)
	s.deps.Metrics.Order(req.Symbol, req.Side, outcome)

	switch outcome {
	case models.OutcomeFilled:
		s.commit(ctx, req, price, result)
		return nil

	case models.OutcomeRejected:
		if err == nil {
			status := "нет ответа"
			if result != nil {
				status = result.Status
			}
			err = fmt.Errorf("статус %s: %w", status, models.ErrOrderNotFilled)
		}
		s.deps.Journal.Append(journal.CategoryError,
			fmt.Sprintf("%s order for %s was not filled: %v", req.Side, req.Symbol, err))
		return err

	case models.OutcomeFatalFault:
		if errors.Is(err, models.ErrUnknownSymbol) {
			s.disabled = true
		}
		s.deps.Journal.Append(journal.CategoryError,
			fmt.Sprintf("%s order for %s failed: %v", req.Side, req.Symbol, err))
		return err

	default:
		if err == nil && result.Working() {
			err = &models.AmbiguousOrderError{
				Symbol:        req.Symbol,
				ClientOrderID: req.ClientOrderID,
				Err:           fmt.Errorf("ордер в статусе %s", result.Status),
			}
		}
		var ambiguous *models.AmbiguousOrderError
		if errors.As(err, &ambiguous) {
			s.pending = &req
			s.deps.Journal.Append(journal.CategoryError,
				fmt.Sprintf("%s order %s for %s has unknown status, will check before next decision",
					req.Side, req.ClientOrderID, req.Symbol))
		}
		return err
	}
}

// commit фиксирует исполненную сделку
func (s *Session) commit(ctx context.Context, req models.OrderRequest, price float64, result *models.OrderResult) {
	now := s.deps.now()

	cfg := s.config
	cfg.BuyOnNextTrade = req.Side.Opposite() == models.SideBuy
	cfg.LastOperationPrice = price
	cfg.LastTradeTimeStamp = unixSeconds(now)
	s.config = cfg
	s.hook.Reset()

	if err := s.deps.Store.Update(cfg); err != nil {
		logger.Error("Ошибка сохранения конфигурации, повтор при следующем сбросе",
			zap.String("symbol", cfg.Symbol()), zap.Error(err))
	}

	record := models.TradeRecord{
		Symbol:         cfg.Symbol(),
		BaseCurrency:   cfg.BaseCurrency,
		TargetCurrency: cfg.TargetCurrency,
		Side:           req.Side,
		Quantity:       result.ExecutedQuantity,
		QuoteAmount:    result.CumulativeQuoteAmount,
		Price:          price,
		Time:           now,
	}

	message := journal.TradeMessage(record)
	if req.Side == models.SideSell {
		message += s.profitText(record)
	}

	s.deps.Journal.RecordTrade(record)
	s.deps.notify(ctx, message)
	if err := s.deps.recorder().RecordTrade(ctx, record); err != nil {
		logger.Warn("Ошибка записи сделки в хранилище", zap.String("symbol", record.Symbol), zap.Error(err))
	}

	logger.Info("Сделка исполнена",
		zap.String("symbol", record.Symbol),
		zap.String("side", string(record.Side)),
		zap.Float64("quantity", record.Quantity),
		zap.Float64("quote", record.QuoteAmount),
		zap.Float64("price", price),
	)
}

// profitText прибыль продажи относительно последней покупки из журнала
func (s *Session) profitText(sell models.TradeRecord) string {
	buy, err := s.deps.Journal.LastBuy(sell.Symbol)
	if err != nil {
		logger.Warn("Не удалось найти последнюю покупку", zap.String("symbol", sell.Symbol), zap.Error(err))
		return ""
	}
	if buy == nil || buy.Price <= 0 {
		return ""
	}

	profit := (sell.Price - buy.Price) * sell.Quantity
	percent := 100 * (sell.Price - buy.Price) / buy.Price
	return fmt.Sprintf(", profit %s %s (%.2f%%)", journal.FormatAmount(profit), sell.TargetCurrency, percent)
}
