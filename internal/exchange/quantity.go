package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/skalibog/spothook/pkg/models"
)

// AdjustQuantity округляет количество вниз до шага LOT_SIZE и точности актива.
// Количество меньше minQty ордер не пропускает.
func AdjustQuantity(quantity float64, stepSize, minQty string, precision int) (string, error) {
	q := decimal.NewFromFloat(quantity)

	step, err := parseFilter(stepSize)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора stepSize %q: %w", stepSize, err)
	}
	minimum, err := parseFilter(minQty)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора minQty %q: %w", minQty, err)
	}

	if step.IsPositive() {
		q = q.Div(step).Floor().Mul(step)
	}
	if precision >= 0 {
		q = q.Truncate(int32(precision))
	}

	if !q.IsPositive() || q.LessThan(minimum) {
		return "", fmt.Errorf("количество %s меньше минимального %s: %w", q.String(), minimum.String(), models.ErrOrderRejected)
	}
	return q.String(), nil
}

func parseFilter(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseFloat(value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
