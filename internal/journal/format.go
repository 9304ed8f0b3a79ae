package journal

import "github.com/shopspring/decimal"

// FormatAmount печатает число без лишних нулей и не больше 8 знаков
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}
