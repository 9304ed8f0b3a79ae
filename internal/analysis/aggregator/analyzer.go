package aggregator

import (
	"context"
	"fmt"

	"github.com/skalibog/spothook/internal/analysis/technical"
	"github.com/skalibog/spothook/internal/config"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// RosterSize число индикаторов, участвующих в голосовании
const RosterSize = 5

// Analyzer объединяет технический анализ и пороги голосования
type Analyzer struct {
	config        config.SignalConfig
	technicalAnal *technical.Analyzer
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg config.SignalConfig) *Analyzer {
	return &Analyzer{
		config:        cfg,
		technicalAnal: technical.NewAnalyzer(cfg.Technical),
	}
}

// GenerateSignal считает голоса индикаторов для символа по текущей цене
func (a *Analyzer) GenerateSignal(ctx context.Context, source technical.CloseSource, symbol string, price float64) (models.SignalTally, error) {
	set, err := a.technicalAnal.Analyze(ctx, source, symbol)
	if err != nil {
		return models.SignalTally{}, fmt.Errorf("ошибка технического анализа: %w", err)
	}

	tally := Tally(price, *set, a.config.Technical.RSI.Margin)

	logger.Debug("Голосование индикаторов",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Int("buy", tally.Buy),
		zap.Int("sell", tally.Sell),
	)

	return tally, nil
}

// BuyReached достигнут ли порог покупки
func (a *Analyzer) BuyReached(t models.SignalTally) bool {
	return t.Total > 0 && t.BuyPercent() >= a.config.BuyPercent
}

// SellReached достигнут ли порог продажи
func (a *Analyzer) SellReached(t models.SignalTally) bool {
	return t.Total > 0 && t.SellPercent() >= a.config.SellPercent
}

// Tally раскладывает голоса пяти индикаторов. Каждый индикатор голосует
// не более одного раза, равенство цены и индикатора голоса не дает.
func Tally(price float64, set models.IndicatorSet, rsiMargin float64) models.SignalTally {
	tally := models.SignalTally{Total: RosterSize}

	switch {
	case set.RSI >= 70-rsiMargin:
		tally.Sell++
	case set.RSI <= 30+rsiMargin:
		tally.Buy++
	}

	switch {
	case price > set.Bollinger.Upper:
		tally.Sell++
	case price < set.Bollinger.Lower:
		tally.Buy++
	}

	for _, level := range []float64{set.SMA, set.EMAShort, set.EMALong} {
		switch {
		case price > level:
			tally.Sell++
		case price < level:
			tally.Buy++
		}
	}

	return tally
}
