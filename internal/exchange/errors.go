package exchange

import (
	"errors"
	"fmt"

	"github.com/adshao/go-binance/v2/common"
	"github.com/skalibog/spothook/pkg/models"
)

// Коды ошибок Binance, которые обрабатываются отдельно
const (
	codeDisconnected    = -1001
	codeTooManyRequests = -1003
	codeTimeout         = -1007
	codeInvalidSymbol   = -1121
	codeNewOrderReject  = -2010
	codeNoSuchOrder     = -2013
)

// classify переводит ошибку клиента Binance в таксономию models.
// Ошибки без кода API считаются сетевыми.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{models.ErrUnknownSymbol, models.ErrInsufficientData, models.ErrOrderRejected} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrTransientNetwork)
	}

	switch apiErr.Code {
	case codeDisconnected, codeTooManyRequests, codeTimeout:
		return fmt.Errorf("%s: %v: %w", op, apiErr, models.ErrTransientNetwork)
	case codeInvalidSymbol:
		return fmt.Errorf("%s: %v: %w", op, apiErr, models.ErrUnknownSymbol)
	case codeNoSuchOrder:
		return fmt.Errorf("%s: %v: %w", op, apiErr, models.ErrOrderNotFound)
	case codeNewOrderReject:
		return fmt.Errorf("%s: %v: %w", op, apiErr, models.ErrOrderRejected)
	default:
		return fmt.Errorf("%s: %w", op, apiErr)
	}
}

// classifyOrder для отправки ордера любой ответ API без сетевого кода означает отказ
func classifyOrder(err error) error {
	err = classify("ошибка создания ордера", err)
	if err == nil || errors.Is(err, models.ErrTransientNetwork) || errors.Is(err, models.ErrUnknownSymbol) ||
		errors.Is(err, models.ErrOrderRejected) {
		return err
	}
	return fmt.Errorf("%v: %w", err, models.ErrOrderRejected)
}

func isTransient(err error) bool {
	return errors.Is(err, models.ErrTransientNetwork)
}
