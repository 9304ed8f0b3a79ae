package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/skalibog/spothook/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance BinanceConfig `yaml:"binance"`
	Trading TradingConfig `yaml:"trading"`
	Signal  SignalConfig  `yaml:"signal"`
	Notify  NotifyConfig  `yaml:"notify"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	UI      UIConfig      `yaml:"ui"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey                string `yaml:"api_key"`
	APISecret             string `yaml:"api_secret"`
	Testnet               bool   `yaml:"testnet"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	MaxRetries            int    `yaml:"max_retries"`
}

// RequestTimeout таймаут одного запроса к бирже
func (c BinanceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TradingConfig содержит настройки торгового цикла
type TradingConfig struct {
	SymbolsFile         string `yaml:"symbols_file"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	Workers             int    `yaml:"workers"`
	// AverageInterval интервал свечей для средней цены при простое и в фильтре средней
	AverageInterval string `yaml:"average_interval"`
	// StepTimeoutSeconds ограничение на обработку одного символа за цикл
	StepTimeoutSeconds int `yaml:"step_timeout_seconds"`
}

// PollInterval пауза между проходами по всем символам
func (c TradingConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StepTimeout время на один шаг сессии, включая ордер и его проверку
func (c TradingConfig) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSeconds) * time.Second
}

// SignalConfig пороги агрегатора сигналов
type SignalConfig struct {
	BuyPercent  float64         `yaml:"buy_percent"`
	SellPercent float64         `yaml:"sell_percent"`
	Technical   TechnicalConfig `yaml:"technical"`
}

// TechnicalConfig настройки технического анализа
type TechnicalConfig struct {
	RSI       RSIConfig       `yaml:"rsi"`
	Bollinger BollingerConfig `yaml:"bollinger"`
	SMA       WindowConfig    `yaml:"sma"`
	EMAShort  WindowConfig    `yaml:"ema_short"`
	EMALong   WindowConfig    `yaml:"ema_long"`
}

// WindowConfig окно свечей для индикатора
type WindowConfig struct {
	Interval string `yaml:"interval"`
	Period   int    `yaml:"period"`
}

// RSIConfig настройки RSI
type RSIConfig struct {
	Interval string  `yaml:"interval"`
	Period   int     `yaml:"period"`
	Mode     string  `yaml:"mode"`
	Margin   float64 `yaml:"margin"`
}

// BollingerConfig настройки полос Боллинджера
type BollingerConfig struct {
	Interval   string  `yaml:"interval"`
	Period     int     `yaml:"period"`
	Deviations float64 `yaml:"deviations"`
}

// NotifyConfig настройки уведомлений
type NotifyConfig struct {
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Telegram       TelegramConfig `yaml:"telegram"`
	Discord        DiscordConfig  `yaml:"discord"`
}

// Timeout ограничение на одну отправку
func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TelegramConfig настройки Telegram
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// DiscordConfig настройки Discord
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// StorageConfig настройки хранения истории в InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LogConfig настройки логгера
type LogConfig struct {
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Level    string `yaml:"level"`
	Console  bool   `yaml:"console"`
}

// JournalConfig журнал сделок и событий
type JournalConfig struct {
	File string `yaml:"file"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	Enabled     bool `yaml:"enabled"`
	RefreshRate int  `yaml:"refresh_rate_ms"`
}

// Default конфигурация по умолчанию
func Default() Config {
	return Config{
		Binance: BinanceConfig{
			RequestTimeoutSeconds: 10,
			MaxRetries:            3,
		},
		Trading: TradingConfig{
			SymbolsFile:         "config_spothook.json",
			PollIntervalSeconds: 5,
			Workers:             1,
			AverageInterval:     "1d",
			StepTimeoutSeconds:  60,
		},
		Signal: SignalConfig{
			BuyPercent:  100,
			SellPercent: 80,
			Technical: TechnicalConfig{
				RSI:       RSIConfig{Interval: "4h", Period: 14, Mode: "sma", Margin: 4},
				Bollinger: BollingerConfig{Interval: "4h", Period: 20, Deviations: 2},
				SMA:       WindowConfig{Interval: "4h", Period: 9},
				EMAShort:  WindowConfig{Interval: "4h", Period: 9},
				EMALong:   WindowConfig{Interval: "1d", Period: 9},
			},
		},
		Notify: NotifyConfig{TimeoutSeconds: 10},
		Metrics: MetricsConfig{
			Address: ":9102",
		},
		Log: LogConfig{
			File:     "app.log",
			JSONFile: "app.json.log",
			Level:    "debug",
		},
		Journal: JournalConfig{File: "journal_spothook.jsonl"},
		UI:      UIConfig{Enabled: true, RefreshRate: 500},
	}
}

// Load загружает конфигурацию из файла, секреты берутся из окружения и .env
func Load(path string) (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path))
	return &config, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"BINANCE_API_KEY", &c.Binance.APIKey},
		{"BINANCE_API_SECRET", &c.Binance.APISecret},
		{"TELEGRAM_TOKEN", &c.Notify.Telegram.Token},
		{"DISCORD_TOKEN", &c.Notify.Discord.Token},
		{"INFLUX_TOKEN", &c.Storage.Token},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Validate проверяет значения, без которых бот не может стартовать
func (c *Config) Validate() error {
	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		return fmt.Errorf("не заданы ключи Binance (binance.api_key/api_secret или BINANCE_API_KEY/BINANCE_API_SECRET)")
	}
	if c.Trading.PollIntervalSeconds <= 0 {
		return fmt.Errorf("trading.poll_interval_seconds должен быть больше нуля: %d", c.Trading.PollIntervalSeconds)
	}
	if c.Trading.Workers <= 0 {
		return fmt.Errorf("trading.workers должен быть больше нуля: %d", c.Trading.Workers)
	}
	if c.Trading.StepTimeoutSeconds <= 0 {
		return fmt.Errorf("trading.step_timeout_seconds должен быть больше нуля: %d", c.Trading.StepTimeoutSeconds)
	}
	if c.Binance.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("binance.request_timeout_seconds должен быть больше нуля")
	}
	if c.Signal.BuyPercent <= 0 || c.Signal.BuyPercent > 100 || c.Signal.SellPercent <= 0 || c.Signal.SellPercent > 100 {
		return fmt.Errorf("signal.buy_percent и signal.sell_percent должны быть в диапазоне (0, 100]")
	}
	switch c.Signal.Technical.RSI.Mode {
	case "sma", "ema":
	default:
		return fmt.Errorf("signal.technical.rsi.mode должен быть sma или ema: %q", c.Signal.Technical.RSI.Mode)
	}
	t := c.Signal.Technical
	for name, period := range map[string]int{
		"rsi":       t.RSI.Period,
		"bollinger": t.Bollinger.Period,
		"sma":       t.SMA.Period,
		"ema_short": t.EMAShort.Period,
		"ema_long":  t.EMALong.Period,
	} {
		if period < 2 {
			return fmt.Errorf("период %s должен быть не меньше 2: %d", name, period)
		}
	}
	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("для storage нужны url и bucket")
	}
	return nil
}
