package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// SymbolValidator проверка символа на бирже при старте
type SymbolValidator interface {
	ValidateSymbol(ctx context.Context, symbol string) error
}

// Prepare проверяет включенные символы и заменяет заглушки -1:
// цену последней сделки текущей ценой, время сделки текущим временем.
// Возвращает true, если конфигурацию нужно перезаписать.
func Prepare(ctx context.Context, ex Exchange, configs []models.SymbolConfig, now time.Time) ([]models.SymbolConfig, bool, error) {
	out := append([]models.SymbolConfig(nil), configs...)
	changed := false

	for i := range out {
		cfg := &out[i]
		if !cfg.Enabled {
			continue
		}

		if v, ok := ex.(SymbolValidator); ok {
			if err := v.ValidateSymbol(ctx, cfg.Symbol()); err != nil {
				return nil, false, fmt.Errorf("проверка символа %s: %w", cfg.Symbol(), err)
			}
		}

		if cfg.LastOperationPrice < 0 {
			price, err := ex.LastPrice(ctx, cfg.Symbol())
			if err != nil {
				return nil, false, fmt.Errorf("начальная цена %s: %w", cfg.Symbol(), err)
			}
			cfg.LastOperationPrice = price
			changed = true
			logger.Info("Цена последней сделки установлена по текущей",
				zap.String("symbol", cfg.Symbol()), zap.Float64("price", price))
		}
		if cfg.LastTradeTimeStamp < 0 {
			cfg.LastTradeTimeStamp = unixSeconds(now)
			changed = true
		}
	}

	return out, changed, nil
}

// NewSessions создает сессии для включенных символов
func NewSessions(configs []models.SymbolConfig, deps *Deps, strategy func(name string) (Strategy, error)) ([]*Session, error) {
	var sessions []*Session
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		st, err := strategy(cfg.Strategy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Symbol(), err)
		}
		sessions = append(sessions, NewSession(cfg, st, deps))
	}
	return sessions, nil
}
