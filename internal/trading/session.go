package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skalibog/spothook/internal/analysis/technical"
	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// Session состояние одного символа: конфигурация, хук и неразрешенный ордер.
// За цикл сессию обрабатывает только одна горутина.
type Session struct {
	deps     *Deps
	strategy Strategy

	config  models.SymbolConfig
	hook    HookState
	pending *models.OrderRequest

	disabled bool
}

// NewSession создает сессию символа
func NewSession(cfg models.SymbolConfig, strategy Strategy, deps *Deps) *Session {
	return &Session{
		deps:     deps,
		strategy: strategy,
		config:   cfg,
		hook:     NewHookState(),
	}
}

func (s *Session) Symbol() string { return s.config.Symbol() }
func (s *Session) Config() models.SymbolConfig { return s.config }
func (s *Session) Hook() HookState { return s.hook }
func (s *Session) Disabled() bool { return s.disabled }

// Pending client id ордера с неизвестным статусом
func (s *Session) Pending() (string, bool) {
	if s.pending == nil {
		return "", false
	}
	return s.pending.ClientOrderID, true
}

// Evaluate выполняет один цикл символа. Ошибка означает пропуск цикла,
// состояние при этом не меняется.
func (s *Session) Evaluate(ctx context.Context) (models.SymbolStatus, error) {
	status := s.status(0)
	if s.disabled {
		return status, fmt.Errorf("%s отключен: %w", s.Symbol(), models.ErrUnknownSymbol)
	}

	if s.pending != nil {
		if err := s.resolvePending(ctx); err != nil {
			return status, err
		}
	}

	price, err := s.deps.Exchange.LastPrice(ctx, s.Symbol())
	if err != nil {
		return status, fmt.Errorf("ошибка получения цены: %w", err)
	}

	// Хук другой стороны после ручной правки конфигурации не продолжается
	if s.hook.Engaged && s.hook.Side != s.config.NextSide() {
		logger.Warn("Сброс хука: сторона не совпадает с конфигурацией",
			zap.String("symbol", s.Symbol()), zap.String("hook", s.hook.String()))
		s.hook.Reset()
	}

	var signals *models.SignalTally
	if s.hook.Engaged {
		if s.hook.Track(price, s.config.LastOperationPrice, s.config.HookPercent) {
			if err := s.execute(ctx, price); err != nil {
				st := s.status(price)
				st.Error = err.Error()
				return st, err
			}
		}
	} else {
		signals, err = s.decide(ctx, price)
		if err != nil {
			st := s.status(price)
			st.Signals = tallyString(signals)
			return st, err
		}
		if err := s.recoverIdle(ctx, price); err != nil {
			st := s.status(price)
			st.Signals = tallyString(signals)
			return st, err
		}
	}

	status = s.status(price)
	status.Signals = tallyString(signals)
	return status, nil
}

// decide спрашивает стратегию и взводит хук, если фильтры не запрещают
func (s *Session) decide(ctx context.Context, price float64) (*models.SignalTally, error) {
	verdict, err := s.strategy.Evaluate(ctx, EvalContext{Config: s.config, Price: price, Exchange: s.deps.Exchange})
	if err != nil {
		return nil, fmt.Errorf("ошибка стратегии %s: %w", s.strategy.Name(), err)
	}

	side, ok := verdict.Decision.Side()
	if !ok || side != s.config.NextSide() {
		return verdict.Tally, nil
	}

	allowed, reason, err := s.guard(ctx, side, price, verdict)
	if err != nil {
		return verdict.Tally, err
	}
	if !allowed {
		logger.Info("Хук не взведен", zap.String("symbol", s.Symbol()), zap.String("reason", reason))
		return verdict.Tally, nil
	}

	s.hook.Engage(side, price)
	s.deps.Metrics.HookEngaged(s.Symbol(), side)

	prefix := ""
	if verdict.LossPrevention {
		prefix = "Loss prevention !!! "
	}
	action := "buy"
	if side == models.SideSell {
		action = "sell"
	}
	s.deps.Journal.Append(journal.CategoryHook,
		fmt.Sprintf("%sHook price -> %g, will %s after hook control ( %s )", prefix, price, action, s.Symbol()))
	logger.Info("Хук взведен",
		zap.String("symbol", s.Symbol()),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.String("reason", verdict.Reason),
	)
	return verdict.Tally, nil
}

// guard фильтры, которые могут запретить взвод хука
func (s *Session) guard(ctx context.Context, side models.Side, price float64, verdict Verdict) (bool, string, error) {
	cfg := s.config

	if side == models.SideSell {
		if cfg.PreventLoss && !verdict.LossPrevention {
			minimum := cfg.LastOperationPrice * (1 + cfg.MinProfitPercent/100)
			if price < minimum {
				return false, fmt.Sprintf("прибыль меньше %g%%, нужна цена от %g", cfg.MinProfitPercent, minimum), nil
			}
		}
		return true, "", nil
	}

	if cfg.AvoidBuyOnDailyIncrease {
		change, err := s.deps.Exchange.PriceChangePercent24h(ctx, s.Symbol())
		if err != nil {
			return false, "", fmt.Errorf("ошибка получения суточного изменения: %w", err)
		}
		if change > cfg.AvoidBuyOnDailyIncreasePercent {
			return false, fmt.Sprintf("рост за сутки %g%%", change), nil
		}
	}

	if cfg.AvoidBuyOnAverageIncrease {
		average, err := s.averageClose(ctx, cfg.AvoidBuyOnAverageDayCount)
		if err != nil {
			return false, "", err
		}
		if price > average {
			return false, fmt.Sprintf("цена %g выше средней %g", price, average), nil
		}
	}

	return true, "", nil
}

func (s *Session) averageClose(ctx context.Context, count int) (float64, error) {
	closes, err := s.deps.Exchange.RecentCloses(ctx, s.Symbol(), s.deps.AverageInterval, count)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения средней цены: %w", err)
	}
	return technical.SMA(closes)
}

// resolvePending выясняет судьбу ордера, ответ на который был потерян
func (s *Session) resolvePending(ctx context.Context) error {
	req := *s.pending

	result, err := s.deps.Exchange.OrderStatus(ctx, req.Symbol, req.ClientOrderID)
	if errors.Is(err, models.ErrOrderNotFound) {
		s.pending = nil
		s.deps.Journal.Append(journal.CategoryInfo,
			fmt.Sprintf("Order %s was not received by the exchange ( %s )", req.ClientOrderID, req.Symbol))
		return nil
	}
	if err != nil {
		return fmt.Errorf("статус ордера %s не получен: %w", req.ClientOrderID, err)
	}

	s.pending = nil
	price := s.config.LastOperationPrice
	if result.ExecutedQuantity > 0 {
		price = result.CumulativeQuoteAmount / result.ExecutedQuantity
	}
	return s.applyOrder(ctx, req, price, result, nil)
}

func (s *Session) status(price float64) models.SymbolStatus {
	cfg := s.config
	st := models.SymbolStatus{
		Symbol:             cfg.Symbol(),
		BaseCurrency:       cfg.BaseCurrency,
		TargetCurrency:     cfg.TargetCurrency,
		Strategy:           s.strategy.Name(),
		Owned:              !cfg.BuyOnNextTrade,
		CurrentPrice:       price,
		LastOperationPrice: cfg.LastOperationPrice,
		Hooked:             s.hook.Engaged,
		HookPrice:          s.hook.Price,
		UpdatedAt:          s.deps.now(),
	}
	if price > 0 && cfg.LastOperationPrice > 0 {
		st.DifferencePercent = 100 * (price - cfg.LastOperationPrice) / cfg.LastOperationPrice
		if cfg.BuyOnNextTrade {
			st.InFavor = price < cfg.LastOperationPrice
		} else {
			st.InFavor = price > cfg.LastOperationPrice
		}
	}
	return st
}

func tallyString(t *models.SignalTally) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// unixSeconds время в формате last_trade_time_stamp
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
