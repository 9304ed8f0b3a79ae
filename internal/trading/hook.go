package trading

import (
	"fmt"

	"github.com/skalibog/spothook/pkg/models"
)

// HookState отложенное исполнение: после сигнала цена отслеживается до
// локального экстремума, ордер отправляется на развороте от него.
// Живет только в памяти.
type HookState struct {
	Engaged bool
	Side    models.Side
	Price   float64
}

// NewHookState состояние после старта процесса
func NewHookState() HookState {
	return HookState{Price: -1}
}

// Engage взводит хук по текущей цене
func (h *HookState) Engage(side models.Side, price float64) {
	h.Engaged = true
	h.Side = side
	h.Price = price
}

// Track сдвигает цену хука за рынком в сторону выгоды и сообщает, что
// разворот от экстремума превысил lop*hookPercent/100.
func (h *HookState) Track(price, lop, hookPercent float64) bool {
	if !h.Engaged {
		return false
	}

	threshold := lop * hookPercent / 100
	switch h.Side {
	case models.SideBuy:
		if price < h.Price {
			h.Price = price
			return false
		}
		return price-h.Price > threshold
	case models.SideSell:
		if price > h.Price {
			h.Price = price
			return false
		}
		return h.Price-price > threshold
	}
	return false
}

// Reset возвращает хук в IDLE
func (h *HookState) Reset() {
	*h = NewHookState()
}

func (h HookState) String() string {
	if !h.Engaged {
		return "IDLE"
	}
	return fmt.Sprintf("HOOKED_FOR_%s @ %g", h.Side, h.Price)
}
