package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")
	t.Setenv("TELEGRAM_TOKEN", "tg")

	path := writeConfig(t, `
trading:
  symbols_file: symbols.json
  workers: 3
signal:
  sell_percent: 60
notify:
  telegram:
    chat_id: 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Binance.APIKey)
	assert.Equal(t, "tg", cfg.Notify.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Notify.Telegram.ChatID)
	assert.Equal(t, "symbols.json", cfg.Trading.SymbolsFile)
	assert.Equal(t, 3, cfg.Trading.Workers)
	assert.Equal(t, 5, cfg.Trading.PollIntervalSeconds)
	assert.Equal(t, 100.0, cfg.Signal.BuyPercent)
	assert.Equal(t, 60.0, cfg.Signal.SellPercent)
	assert.Equal(t, "4h", cfg.Signal.Technical.RSI.Interval)
	assert.Equal(t, 14, cfg.Signal.Technical.RSI.Period)
	assert.Equal(t, "1d", cfg.Signal.Technical.EMALong.Interval)
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")

	_, err := Load(writeConfig(t, "trading:\n  workers: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ключи Binance")
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Binance.APIKey = "k"
	valid.Binance.APISecret = "s"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero workers", func(c *Config) { c.Trading.Workers = 0 }},
		{"zero interval", func(c *Config) { c.Trading.PollIntervalSeconds = 0 }},
		{"zero step timeout", func(c *Config) { c.Trading.StepTimeoutSeconds = 0 }},
		{"bad percent", func(c *Config) { c.Signal.BuyPercent = 120 }},
		{"bad rsi mode", func(c *Config) { c.Signal.Technical.RSI.Mode = "wilder" }},
		{"short period", func(c *Config) { c.Signal.Technical.SMA.Period = 1 }},
		{"storage without url", func(c *Config) { c.Storage.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
