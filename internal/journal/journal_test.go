package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/skalibog/spothook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(symbol string, side models.Side, price float64) models.TradeRecord {
	return models.TradeRecord{
		Symbol:         symbol,
		BaseCurrency:   strings.TrimSuffix(symbol, "USDT"),
		TargetCurrency: "USDT",
		Side:           side,
		Quantity:       0.5,
		QuoteAmount:    0.5 * price,
		Price:          price,
		Time:           time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestJournalWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(path, 10)
	require.NoError(t, err)

	j.Append(CategoryHook, "Hook price -> 100 ( BTCUSDT )")
	j.RecordTrade(trade("BTCUSDT", models.SideBuy, 100))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"category":"hook"`)
	assert.Contains(t, lines[1], `"message":"Bought 0.5 BTC for 50 USDT ( BTCUSDT -> 100 )"`)
	assert.Contains(t, lines[1], `"side":"BUY"`)
}

func TestLastBuy(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.jsonl"), 0)
	require.NoError(t, err)
	defer j.Close()

	none, err := j.LastBuy("BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, none)

	j.RecordTrade(trade("BTCUSDT", models.SideBuy, 100))
	j.RecordTrade(trade("ETHUSDT", models.SideBuy, 10))
	j.RecordTrade(trade("BTCUSDT", models.SideSell, 110))
	j.RecordTrade(trade("BTCUSDT", models.SideBuy, 105))
	j.Append(CategoryError, "broken line follows")

	last, err := j.LastBuy("BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 105.0, last.Price)
	assert.True(t, last.Time.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
}

func TestRecentKeepsNewest(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.jsonl"), 2)
	require.NoError(t, err)
	defer j.Close()

	j.Append(CategoryInfo, "one")
	j.Append(CategoryInfo, "two")
	j.Append(CategoryIdle, "three")

	recent := j.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, CategoryIdle, recent[1].Category)
}

func TestJournalConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(path, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if i%2 == 0 {
					j.Append(CategoryInfo, fmt.Sprintf("worker %d event %d %s", w, i, strings.Repeat("x", 512)))
				} else {
					j.RecordTrade(trade(fmt.Sprintf("W%dUSDT", w), models.SideBuy, float64(i)))
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 400)
	for _, line := range lines {
		var e Entry
		require.NoError(t, sonic.UnmarshalString(line, &e), line)
	}
}
