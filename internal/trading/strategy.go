package trading

import (
	"context"
	"fmt"

	"github.com/skalibog/spothook/internal/analysis/aggregator"
	"github.com/skalibog/spothook/pkg/models"
)

// Decision решение стратегии на текущем цикле
type Decision int

const (
	Hold Decision = iota
	Buy
	Sell
)

func (d Decision) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Side сторона сделки для решения
func (d Decision) Side() (models.Side, bool) {
	switch d {
	case Buy:
		return models.SideBuy, true
	case Sell:
		return models.SideSell, true
	}
	return "", false
}

// Verdict решение и его обоснование
type Verdict struct {
	Decision Decision
	Reason   string
	// LossPrevention продажа ради ограничения убытка, минимальная прибыль не проверяется
	LossPrevention bool
	Tally          *models.SignalTally
}

// EvalContext входные данные стратегии
type EvalContext struct {
	Config   models.SymbolConfig
	Price    float64
	Exchange Exchange
}

// Strategy решает, нужно ли взводить хук
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, in EvalContext) (Verdict, error)
}

// NewStrategy стратегия по имени из конфигурации символа
func NewStrategy(name string, signals *aggregator.Analyzer) (Strategy, error) {
	switch name {
	case models.StrategyPriceThreshold:
		return PriceThresholdStrategy{}, nil
	case models.StrategyIndicatorSignal:
		if signals == nil {
			return nil, fmt.Errorf("для стратегии %s нужен анализатор сигналов", name)
		}
		return &IndicatorSignalStrategy{signals: signals}, nil
	default:
		return nil, fmt.Errorf("неизвестная стратегия %q: %w", name, models.ErrConfigSchema)
	}
}

// PriceThresholdStrategy покупка после падения и продажа после роста
// относительно цены последней сделки
type PriceThresholdStrategy struct{}

func (PriceThresholdStrategy) Name() string { return models.StrategyPriceThreshold }

func (PriceThresholdStrategy) Evaluate(_ context.Context, in EvalContext) (Verdict, error) {
	cfg := in.Config
	lop := cfg.LastOperationPrice

	if cfg.BuyOnNextTrade {
		if in.Price < lop*(1-cfg.ProfitPercentBuy/100) {
			return Verdict{Decision: Buy, Reason: fmt.Sprintf("цена упала более чем на %g%%", cfg.ProfitPercentBuy)}, nil
		}
		return Verdict{Decision: Hold}, nil
	}

	if in.Price > lop*(1+cfg.ProfitPercentSell/100) {
		return Verdict{Decision: Sell, Reason: fmt.Sprintf("цена выросла более чем на %g%%", cfg.ProfitPercentSell)}, nil
	}
	if cfg.LossPrevention && in.Price < lop*(1-cfg.LossPreventionPercent/100) {
		return Verdict{
			Decision:       Sell,
			Reason:         fmt.Sprintf("убыток превысил %g%%", cfg.LossPreventionPercent),
			LossPrevention: true,
		}, nil
	}
	return Verdict{Decision: Hold}, nil
}

// IndicatorSignalStrategy голосование пяти индикаторов
type IndicatorSignalStrategy struct {
	signals *aggregator.Analyzer
}

func (s *IndicatorSignalStrategy) Name() string { return models.StrategyIndicatorSignal }

func (s *IndicatorSignalStrategy) Evaluate(ctx context.Context, in EvalContext) (Verdict, error) {
	tally, err := s.signals.GenerateSignal(ctx, in.Exchange, in.Config.Symbol(), in.Price)
	if err != nil {
		return Verdict{}, err
	}

	verdict := Verdict{Decision: Hold, Tally: &tally}
	switch {
	case in.Config.BuyOnNextTrade && s.signals.BuyReached(tally):
		verdict.Decision = Buy
		verdict.Reason = "сигналы на покупку: " + tally.String()
	case !in.Config.BuyOnNextTrade && s.signals.SellReached(tally):
		verdict.Decision = Sell
		verdict.Reason = "сигналы на продажу: " + tally.String()
	}
	return verdict, nil
}
