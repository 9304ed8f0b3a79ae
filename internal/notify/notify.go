package notify

import (
	"context"
	"sync"
	"time"

	"github.com/skalibog/spothook/pkg/logger"
	"go.uber.org/zap"
)

// Notifier доставляет сообщение в один канал
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// Dispatcher рассылает сообщения асинхронно. Каждая отправка ограничена
// таймаутом, ошибки только логируются.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	onFailure func()
	wg        sync.WaitGroup
}

// NewDispatcher создает рассыльщика
func NewDispatcher(timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, timeout: timeout}
}

// OnFailure вызывается после каждой неудачной отправки
func (d *Dispatcher) OnFailure(fn func()) {
	d.onFailure = fn
}

// Send отправляет сообщение во все каналы и не ждет результата
func (d *Dispatcher) Send(ctx context.Context, message string) {
	base := context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := n.Notify(sendCtx, message); err != nil {
				logger.Warn("Не удалось отправить уведомление",
					zap.String("notifier", n.Name()),
					zap.Error(err),
				)
				if d.onFailure != nil {
					d.onFailure()
				}
			}
		}(n)
	}
}

// Wait дожидается завершения начатых отправок
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Log пишет уведомления в лог приложения
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Notify(_ context.Context, message string) error {
	logger.Info("Уведомление", zap.String("message", message))
	return nil
}
