package models

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientNetwork символ пропускается в этом цикле без изменения состояния
	ErrTransientNetwork = errors.New("временная сетевая ошибка")
	// ErrInsufficientData недостаточно данных для расчета индикатора
	ErrInsufficientData = errors.New("недостаточно данных")
	// ErrOrderNotFilled ордер не исполнен, хук остается взведенным
	ErrOrderNotFilled = errors.New("ордер не исполнен")
	// ErrOrderRejected биржа отклонила ордер
	ErrOrderRejected = errors.New("ордер отклонен биржей")
	// ErrOrderNotFound ордер с таким client id не найден на бирже
	ErrOrderNotFound = errors.New("ордер не найден")
	// ErrConfigSchema ошибка схемы конфигурации символов
	ErrConfigSchema = errors.New("ошибка конфигурации")
	// ErrUnknownSymbol символ неизвестен бирже
	ErrUnknownSymbol = errors.New("неизвестный символ")
)

// AmbiguousOrderError ордер мог быть принят биржей, но подтверждения нет.
// Перед новой попыткой нужно запросить статус по ClientOrderID.
type AmbiguousOrderError struct {
	Symbol        string
	ClientOrderID string
	Err           error
}

func (e *AmbiguousOrderError) Error() string {
	return fmt.Sprintf("статус ордера %s (%s) не определен: %v", e.ClientOrderID, e.Symbol, e.Err)
}

func (e *AmbiguousOrderError) Unwrap() error {
	return e.Err
}
