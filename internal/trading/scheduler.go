package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skalibog/spothook/internal/journal"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cycleFunc подписчик на состояния символов после цикла
type cycleFunc func([]models.SymbolStatus)

// Scheduler обходит все сессии раз в интервал опроса
type Scheduler struct {
	sessions []*Session
	deps     *Deps
	workers  int
	interval time.Duration

	mu       sync.RWMutex
	statuses []models.SymbolStatus
	onCycle  []cycleFunc
}

// NewScheduler создает планировщик. workers ограничивает число символов,
// которые обрабатываются одновременно.
func NewScheduler(sessions []*Session, deps *Deps, workers int, interval time.Duration) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		sessions: sessions,
		deps:     deps,
		workers:  workers,
		interval: interval,
	}
}

// OnCycle подписка на состояния символов после каждого цикла
func (s *Scheduler) OnCycle(fn func([]models.SymbolStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCycle = append(s.onCycle, fn)
}

// Statuses состояния после последнего цикла
func (s *Scheduler) Statuses() []models.SymbolStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SymbolStatus(nil), s.statuses...)
}

// Run повторяет циклы до отмены ctx. Начатый цикл завершается,
// конфигурация сбрасывается на диск.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("Запуск торгового цикла",
		zap.Int("symbols", len(s.sessions)),
		zap.Int("workers", s.workers),
		zap.Duration("interval", s.interval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Остановка торгового цикла")
			return s.flush()
		case <-timer.C:
		}

		s.RunCycle(ctx)
		timer.Reset(s.interval)
	}
}

// RunCycle один проход по всем символам. Ошибка или паника одного символа
// не мешает остальным.
func (s *Scheduler) RunCycle(ctx context.Context) []models.SymbolStatus {
	start := time.Now()
	statuses := make([]models.SymbolStatus, len(s.sessions))
	// отмена не прерывает начатые вызовы биржи
	evalCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, session := range s.sessions {
		if ctx.Err() != nil {
			statuses[i] = session.status(0)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				statuses[i] = session.status(0)
				return nil
			}
			statuses[i] = s.evaluate(evalCtx, session)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.flush(); err != nil {
		logger.Error("Ошибка сохранения конфигурации символов", zap.Error(err))
	}

	pending := 0
	for i, session := range s.sessions {
		if _, ok := session.Pending(); ok {
			pending++
		}
		s.deps.Metrics.ObserveStatus(statuses[i])
		if statuses[i].CurrentPrice > 0 {
			if err := s.deps.recorder().RecordStatus(evalCtx, statuses[i]); err != nil {
				logger.Warn("Ошибка записи состояния", zap.String("symbol", statuses[i].Symbol), zap.Error(err))
			}
		}
	}
	s.deps.Metrics.SetPending(pending)
	s.deps.Metrics.ObserveCycle(time.Since(start).Seconds())

	s.mu.Lock()
	s.statuses = statuses
	subscribers := append([]cycleFunc(nil), s.onCycle...)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(append([]models.SymbolStatus(nil), statuses...))
	}

	return statuses
}

func (s *Scheduler) evaluate(ctx context.Context, session *Session) (status models.SymbolStatus) {
	symbol := session.Symbol()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Паника при обработке символа", zap.String("symbol", symbol), zap.Any("panic", r))
			s.deps.Metrics.SymbolError(symbol)
			status = session.status(0)
			status.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if session.Disabled() {
		status = session.status(0)
		status.Error = "символ отключен"
		return status
	}

	if s.deps.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.CallTimeout)
		defer cancel()
	}

	status, err := session.Evaluate(ctx)
	if err != nil {
		status.Error = err.Error()
		s.deps.Metrics.SymbolError(symbol)

		switch {
		case errors.Is(err, models.ErrOrderNotFilled), errors.Is(err, models.ErrOrderRejected):
			logger.Warn("Ордер не исполнен", zap.String("symbol", symbol), zap.Error(err))
		case errors.Is(err, models.ErrUnknownSymbol):
			session.disabled = true
			logger.Error("Символ неизвестен бирже, обработка остановлена", zap.String("symbol", symbol), zap.Error(err))
			s.deps.Journal.Append(journal.CategoryError, fmt.Sprintf("%s disabled: %v", symbol, err))
		default:
			logger.Warn("Символ пропущен в этом цикле", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return status
}

func (s *Scheduler) flush() error {
	if s.deps.Store == nil || !s.deps.Store.Dirty() {
		return nil
	}
	return s.deps.Store.Flush()
}
