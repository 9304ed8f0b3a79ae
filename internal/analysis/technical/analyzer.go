package technical

import (
	"context"
	"fmt"

	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// CloseSource источник цен закрытия свечей
type CloseSource interface {
	RecentCloses(ctx context.Context, symbol, interval string, count int) ([]float64, error)
}

// Analyzer реализует анализатор технических индикаторов
type Analyzer struct {
	config config.TechnicalConfig
}

// NewAnalyzer создает новый анализатор технических индикаторов
func NewAnalyzer(cfg config.TechnicalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze рассчитывает набор индикаторов для символа
func (a *Analyzer) Analyze(ctx context.Context, source CloseSource, symbol string) (*models.IndicatorSet, error) {
	// RSI считается по приращениям, нужна одна лишняя свеча
	rsiCloses, err := source.RecentCloses(ctx, symbol, a.config.RSI.Interval, a.config.RSI.Period+1)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей RSI: %w", err)
	}
	rsi, err := RSI(rsiCloses, RSIMode(a.config.RSI.Mode))
	if err != nil {
		return nil, err
	}

	bbCloses, err := source.RecentCloses(ctx, symbol, a.config.Bollinger.Interval, a.config.Bollinger.Period)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей Bollinger: %w", err)
	}
	bands, err := BollingerBands(bbCloses, a.config.Bollinger.Deviations)
	if err != nil {
		return nil, err
	}

	sma, err := a.window(ctx, source, symbol, a.config.SMA, SMA)
	if err != nil {
		return nil, err
	}
	emaShort, err := a.window(ctx, source, symbol, a.config.EMAShort, EMA)
	if err != nil {
		return nil, err
	}
	emaLong, err := a.window(ctx, source, symbol, a.config.EMALong, EMA)
	if err != nil {
		return nil, err
	}

	set := &models.IndicatorSet{
		RSI:       rsi,
		Bollinger: bands,
		SMA:       sma,
		EMAShort:  emaShort,
		EMALong:   emaLong,
	}

	logger.Debug("Рассчитаны индикаторы",
		zap.String("symbol", symbol),
		zap.Float64("rsi", set.RSI),
		zap.Float64("bb_upper", set.Bollinger.Upper),
		zap.Float64("bb_lower", set.Bollinger.Lower),
		zap.Float64("sma", set.SMA),
		zap.Float64("ema_short", set.EMAShort),
		zap.Float64("ema_long", set.EMALong),
	)

	return set, nil
}

func (a *Analyzer) window(ctx context.Context, source CloseSource, symbol string, w config.WindowConfig,
	calc func([]float64) (float64, error)) (float64, error) {
	closes, err := source.RecentCloses(ctx, symbol, w.Interval, w.Period)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения свечей %s: %w", w.Interval, err)
	}
	return calc(closes)
}
