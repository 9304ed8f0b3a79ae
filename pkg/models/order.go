package models

import (
	"errors"
)

// Side сторона сделки
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite возвращает противоположную сторону
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatusFilled единственный статус, подтверждающий сделку
const OrderStatusFilled = "FILLED"

// OrderRequest заявка на рыночный ордер
type OrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      float64
	ClientOrderID string
}

// OrderResult ответ биржи по ордеру
type OrderResult struct {
	ClientOrderID         string
	Status                string
	ExecutedQuantity      float64
	CumulativeQuoteAmount float64
}

// Filled сделка исполнена полностью
func (r *OrderResult) Filled() bool {
	return r != nil && r.Status == OrderStatusFilled
}

// Working ордер принят биржей и еще исполняется, новый отправлять нельзя
func (r *OrderResult) Working() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case "NEW", "PARTIALLY_FILLED", "PENDING_NEW":
		return true
	}
	return false
}

// OrderOutcome типизированный итог попытки ордера
type OrderOutcome int

const (
	OutcomeFilled OrderOutcome = iota
	OutcomeRejected
	OutcomeTransientFault
	OutcomeFatalFault
)

func (o OrderOutcome) String() string {
	switch o {
	case OutcomeFilled:
		return "filled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransientFault:
		return "transient"
	case OutcomeFatalFault:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyOrder переводит результат и ошибку биржи в итог.
// Неисполненный ордер и отказ биржи - ожидаемые исходы, а не сбои.
// Ордер в работе - временное состояние, его статус проверяется позже.
func ClassifyOrder(result *OrderResult, err error) OrderOutcome {
	if err == nil {
		switch {
		case result.Filled():
			return OutcomeFilled
		case result.Working():
			return OutcomeTransientFault
		}
		return OutcomeRejected
	}

	var ambiguous *AmbiguousOrderError
	switch {
	case errors.Is(err, ErrUnknownSymbol), errors.Is(err, ErrConfigSchema):
		return OutcomeFatalFault
	case errors.Is(err, ErrOrderRejected), errors.Is(err, ErrOrderNotFilled):
		return OutcomeRejected
	case errors.As(err, &ambiguous), errors.Is(err, ErrTransientNetwork):
		return OutcomeTransientFault
	default:
		return OutcomeTransientFault
	}
}
