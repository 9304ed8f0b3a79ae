package trading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/logger"
	"go.uber.org/zap"
)

// recoverIdle пересчитывает цену последней сделки, если покупки не было
// больше update_lop_on_idle_days. Новая цена не выше текущей.
func (s *Session) recoverIdle(ctx context.Context, price float64) error {
	cfg := s.config
	if !cfg.UpdateLopOnIdle || !cfg.BuyOnNextTrade || s.hook.Engaged {
		return nil
	}

	now := s.deps.now()
	idle := now.Sub(fromUnixSeconds(cfg.LastTradeTimeStamp))
	if idle <= time.Duration(cfg.UpdateLopOnIdleDays)*24*time.Hour {
		return nil
	}

	average, err := s.averageClose(ctx, cfg.UpdateLopOnIdleDays)
	if err != nil {
		return err
	}
	lop := math.Min(average, price)

	cfg.LastOperationPrice = lop
	cfg.LastTradeTimeStamp = unixSeconds(now)
	s.config = cfg

	if err := s.deps.Store.Update(cfg); err != nil {
		logger.Error("Ошибка сохранения конфигурации, повтор при следующем сбросе",
			zap.String("symbol", cfg.Symbol()), zap.Error(err))
	}
	s.deps.Metrics.IdleUpdate(cfg.Symbol())
	s.deps.Journal.Append(journal.CategoryIdle,
		fmt.Sprintf("Update the lop to %g from %g for %s, because there were no trades within %d days",
			lop, price, cfg.Symbol(), cfg.UpdateLopOnIdleDays))
	return nil
}

func fromUnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
