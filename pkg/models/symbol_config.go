package models

const (
	StrategyPriceThreshold  = "price_threshold"
	StrategyIndicatorSignal = "indicator_signal"
)

// SymbolConfig настройки торговли одним символом, сохраняются в JSON-файл.
// Порядок полей определяет порядок ключей в файле.
type SymbolConfig struct {
	Enabled                        bool    `json:"enabled"`
	BaseCurrency                   string  `json:"base_currency"`
	TargetCurrency                 string  `json:"target_currency"`
	Strategy                       string  `json:"strategy"`
	BuyOnNextTrade                 bool    `json:"buy_on_next_trade"`
	LastOperationPrice             float64 `json:"last_operation_price"`
	ProfitPercentBuy               float64 `json:"profit_percent_buy"`
	ProfitPercentSell              float64 `json:"profit_percent_sell"`
	HookPercent                    float64 `json:"hook_percent"`
	TradeWithPercentBuy            bool    `json:"trade_with_percent_buy"`
	TradeAmountBuy                 float64 `json:"trade_amount_buy"`
	TradeWealthPercentBuy          float64 `json:"trade_wealth_percent_buy"`
	TradeWealthPercentSell         float64 `json:"trade_wealth_percent_sell"`
	LossPrevention                 bool    `json:"loss_prevention"`
	LossPreventionPercent          float64 `json:"loss_prevention_percent"`
	PreventLoss                    bool    `json:"prevent_loss"`
	MinProfitPercent               float64 `json:"min_profit_percent"`
	AvoidBuyOnDailyIncrease        bool    `json:"avoid_buy_on_daily_increase"`
	AvoidBuyOnDailyIncreasePercent float64 `json:"avoid_buy_on_daily_increase_percent"`
	AvoidBuyOnAverageIncrease      bool    `json:"avoid_buy_on_average_increase"`
	AvoidBuyOnAverageDayCount      int     `json:"avoid_buy_on_average_day_count"`
	LastTradeTimeStamp             float64 `json:"last_trade_time_stamp"`
	UpdateLopOnIdle                bool    `json:"update_lop_on_idle"`
	UpdateLopOnIdleDays            int     `json:"update_lop_on_idle_days"`
}

// DefaultSymbolConfig значения по умолчанию для отсутствующих ключей
func DefaultSymbolConfig() SymbolConfig {
	return SymbolConfig{
		Enabled:                        true,
		BaseCurrency:                   "BTC",
		TargetCurrency:                 "USDT",
		Strategy:                       StrategyPriceThreshold,
		BuyOnNextTrade:                 true,
		LastOperationPrice:             -1,
		ProfitPercentBuy:               2.5,
		ProfitPercentSell:              2.0,
		HookPercent:                    0.5,
		TradeWithPercentBuy:            true,
		TradeAmountBuy:                 15.0,
		TradeWealthPercentBuy:          99.8,
		TradeWealthPercentSell:         100.0,
		LossPrevention:                 false,
		LossPreventionPercent:          8.0,
		PreventLoss:                    false,
		MinProfitPercent:               6.0,
		AvoidBuyOnDailyIncrease:        true,
		AvoidBuyOnDailyIncreasePercent: 5.0,
		AvoidBuyOnAverageIncrease:      true,
		AvoidBuyOnAverageDayCount:      30,
		LastTradeTimeStamp:             -1,
		UpdateLopOnIdle:                true,
		UpdateLopOnIdleDays:            3,
	}
}

// Symbol торговая пара, например BTCUSDT
func (c SymbolConfig) Symbol() string {
	return c.BaseCurrency + c.TargetCurrency
}

// NextSide сторона следующей сделки
func (c SymbolConfig) NextSide() Side {
	if c.BuyOnNextTrade {
		return SideBuy
	}
	return SideSell
}
