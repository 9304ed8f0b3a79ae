package models

import (
	"fmt"
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Closes возвращает цены закрытия свечей в порядке возрастания времени
func Closes(candles []*Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Bollinger представляет полосы Боллинджера
type Bollinger struct {
	Upper float64
	Mid   float64
	Lower float64
}

// IndicatorSet набор индикаторов, пересчитывается на каждом цикле и никогда не сохраняется
type IndicatorSet struct {
	RSI       float64
	Bollinger Bollinger
	SMA       float64
	EMAShort  float64
	EMALong   float64
}

// SignalTally результат подсчета голосов индикаторов
type SignalTally struct {
	Buy   int
	Sell  int
	Total int
}

// BuyPercent доля голосов за покупку в процентах
func (t SignalTally) BuyPercent() float64 {
	if t.Total == 0 {
		return 0
	}
	return 100 * float64(t.Buy) / float64(t.Total)
}

// SellPercent доля голосов за продажу в процентах
func (t SignalTally) SellPercent() float64 {
	if t.Total == 0 {
		return 0
	}
	return 100 * float64(t.Sell) / float64(t.Total)
}

func (t SignalTally) String() string {
	return fmt.Sprintf("%d Buy - %d Sell", t.Buy, t.Sell)
}

// SymbolStatus текущее состояние символа для UI и хранилища
type SymbolStatus struct {
	Symbol             string
	BaseCurrency       string
	TargetCurrency     string
	Strategy           string
	Owned              bool
	InFavor            bool
	CurrentPrice       float64
	LastOperationPrice float64
	DifferencePercent  float64
	Signals            string
	Hooked             bool
	HookPrice          float64
	Error              string
	UpdatedAt          time.Time
}

// TradeRecord запись о совершенной сделке
type TradeRecord struct {
	Symbol         string    `json:"symbol"`
	BaseCurrency   string    `json:"base_currency"`
	TargetCurrency string    `json:"target_currency"`
	Side           Side      `json:"side"`
	Quantity       float64   `json:"quantity"`
	QuoteAmount    float64   `json:"quote_amount"`
	Price          float64   `json:"price"`
	Time           time.Time `json:"time"`
}
