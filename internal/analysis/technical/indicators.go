package technical

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/spothook/pkg/models"
)

// RSIMode способ усреднения приростов и потерь в RSI
type RSIMode string

const (
	RSIModeSMA RSIMode = "sma"
	RSIModeEMA RSIMode = "ema"
)

// SMA среднее арифметическое ряда
func SMA(series []float64) (float64, error) {
	n := len(series)
	if n == 0 {
		return 0, fmt.Errorf("sma: %w", models.ErrInsufficientData)
	}
	if n == 1 {
		return series[0], nil
	}
	sma := talib.Sma(series, n)
	return sma[n-1], nil
}

// EMA экспоненциальное среднее, затравка равна SMA всего ряда.
// Первая цена входит только в затравку.
func EMA(series []float64) (float64, error) {
	if len(series) < 2 {
		return 0, fmt.Errorf("ema: %d точек: %w", len(series), models.ErrInsufficientData)
	}
	return smooth(series), nil
}

func smooth(series []float64) float64 {
	n := len(series)
	var seed float64
	for _, v := range series {
		seed += v
	}
	seed /= float64(n)

	alpha := 2 / float64(n+1)
	ema := seed
	for i := 1; i < n; i++ {
		ema = alpha*series[i] + (1-alpha)*ema
	}
	return ema
}

// RSI индекс относительной силы по всему ряду.
// Без потерь и без приростов (плоский ряд) возвращает 50.
func RSI(series []float64, mode RSIMode) (float64, error) {
	n := len(series)
	if n < 2 {
		return 0, fmt.Errorf("rsi: %d точек: %w", n, models.ErrInsufficientData)
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff := series[i] - series[i-1]
		gains[i-1] = math.Max(diff, 0)
		losses[i-1] = math.Max(-diff, 0)
	}

	var avgGain, avgLoss float64
	switch mode {
	case RSIModeEMA:
		avgGain = smooth(gains)
		avgLoss = smooth(losses)
	case RSIModeSMA, "":
		avgGain = mean(gains)
		avgLoss = mean(losses)
	default:
		return 0, fmt.Errorf("rsi: неизвестный режим %q", mode)
	}

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// BollingerBands полосы Боллинджера по всему ряду с популяционным отклонением
func BollingerBands(series []float64, deviations float64) (models.Bollinger, error) {
	n := len(series)
	if n == 0 {
		return models.Bollinger{}, fmt.Errorf("bollinger: %w", models.ErrInsufficientData)
	}
	if n == 1 {
		return models.Bollinger{Upper: series[0], Mid: series[0], Lower: series[0]}, nil
	}

	mid, err := SMA(series)
	if err != nil {
		return models.Bollinger{}, err
	}

	// отклонение от mid напрямую: E[x²]-E[x]² теряет точность на больших ценах
	var sum float64
	for _, v := range series {
		sum += (v - mid) * (v - mid)
	}
	width := deviations * math.Sqrt(sum/float64(n))

	return models.Bollinger{
		Upper: mid + width,
		Mid:   mid,
		Lower: mid - width,
	}, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
