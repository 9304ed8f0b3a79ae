package symbols

import (
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// schema ключ JSON -> тип поля SymbolConfig
var schema = buildSchema()

func buildSchema() map[string]reflect.Kind {
	t := reflect.TypeOf(models.SymbolConfig{})
	keys := make(map[string]reflect.Kind, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		keys[name] = f.Type.Kind()
	}
	return keys
}

// Load читает конфигурацию символов. Отсутствующие ключи заполняются значениями
// по умолчанию, одиночный объект считается массивом из одного элемента.
// Если файла нет, возвращается одна конфигурация по умолчанию.
func Load(path string) ([]models.SymbolConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn("Файл конфигурации символов не найден, используется конфигурация по умолчанию",
			zap.String("path", path))
		return []models.SymbolConfig{models.DefaultSymbolConfig()}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Parse(data)
}

// Parse разбирает содержимое файла конфигурации символов
func Parse(data []byte) ([]models.SymbolConfig, error) {
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(models.ErrConfigSchema, "invalid json: %v", err)
	}

	var items []any
	switch v := raw.(type) {
	case map[string]any:
		items = []any{v}
	case []any:
		items = v
	default:
		return nil, errors.Wrap(models.ErrConfigSchema, "expected array of objects")
	}

	configs := make([]models.SymbolConfig, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(models.ErrConfigSchema, "item %d: expected object", i)
		}
		if err := checkKeys(obj); err != nil {
			return nil, errors.WithMessagef(err, "item %d", i)
		}

		encoded, err := sonic.Marshal(obj)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		cfg := models.DefaultSymbolConfig()
		if err := sonic.Unmarshal(encoded, &cfg); err != nil {
			return nil, errors.Wrapf(models.ErrConfigSchema, "item %d: %v", i, err)
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

func checkKeys(obj map[string]any) error {
	for key, value := range obj {
		kind, ok := schema[key]
		if !ok {
			return errors.Wrapf(models.ErrConfigSchema, "unknown key %q", key)
		}

		valid := false
		switch kind {
		case reflect.Bool:
			_, valid = value.(bool)
		case reflect.String:
			_, valid = value.(string)
		case reflect.Float64:
			_, valid = value.(float64)
		case reflect.Int:
			n, isNumber := value.(float64)
			valid = isNumber && n == math.Trunc(n)
		}
		if !valid {
			return errors.Wrapf(models.ErrConfigSchema, "key %q: unexpected value %v (%T)", key, value, value)
		}
	}
	return nil
}

// Validate проверяет уникальность символов и допустимость значений
func Validate(configs []models.SymbolConfig) error {
	seen := make(map[string]bool, len(configs))
	for _, c := range configs {
		if c.BaseCurrency == "" || c.TargetCurrency == "" {
			return errors.Wrap(models.ErrConfigSchema, "base_currency and target_currency are required")
		}
		symbol := c.Symbol()
		if seen[symbol] {
			return errors.Wrapf(models.ErrConfigSchema, "duplicate symbol %s", symbol)
		}
		seen[symbol] = true

		switch c.Strategy {
		case models.StrategyPriceThreshold, models.StrategyIndicatorSignal:
		default:
			return errors.Wrapf(models.ErrConfigSchema, "%s: unknown strategy %q", symbol, c.Strategy)
		}
		if c.HookPercent < 0 {
			return errors.Wrapf(models.ErrConfigSchema, "%s: hook_percent must not be negative", symbol)
		}
		if c.AvoidBuyOnAverageIncrease && c.AvoidBuyOnAverageDayCount <= 0 {
			return errors.Wrapf(models.ErrConfigSchema, "%s: avoid_buy_on_average_day_count must be positive", symbol)
		}
		if c.UpdateLopOnIdle && c.UpdateLopOnIdleDays <= 0 {
			return errors.Wrapf(models.ErrConfigSchema, "%s: update_lop_on_idle_days must be positive", symbol)
		}
	}
	return nil
}
